package main

// main stays thin; all behavior lives behind the cobra commands.
func main() {
	Execute()
}
