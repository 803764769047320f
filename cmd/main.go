// Command osp runs the distributed file-processing coordinator (master) or
// a worker node (slave).
package main

func main() {
	Execute()
}
