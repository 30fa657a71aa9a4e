package main

import (
	"os"

	appLog "calcols/internal/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		appLog.Error("calcols failed", err)
		os.Exit(1)
	}
}
