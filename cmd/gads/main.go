// Command gads routes game-development requests to specialised LLM agents
// and runs multi-step pipelines against persistent project sessions.
package main

func main() {
	Execute()
}
