// Command replan answers objectives with a plan -> execute -> replan agent.
package main

func main() {
	Execute()
}
