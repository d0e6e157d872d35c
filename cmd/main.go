package main

import (
	"os"

	"github.com/RainAllDay-vn/QuizSpark-Website-sub001/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
