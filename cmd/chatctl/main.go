// chatctl - operator tool for the chatkeep session store
package main

func main() {
	Execute()
}
