package main

import "github.com/GriffinCanCode/AppLauncher/backend/internal/cli"

func main() {
	cli.Execute()
}
