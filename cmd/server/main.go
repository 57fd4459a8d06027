package main

import (
	"os"

	"prompt-relay/internal/app"
)

// @title           Prompt Relay API
// @version         1.0
// @description     OpenAI-compatible chat completions proxy that expands the last user message before relaying it.
// @host            localhost:8000
// @BasePath        /
func main() {
	os.Exit(app.Run())
}
