// Command forumctl runs the forum server and its maintenance tasks.
package main

import "forum/cmd/forumctl/commands"

func main() {
	commands.Execute()
}
