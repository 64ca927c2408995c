package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"furnishop-backend/cmd"
)

func main() {
	if err := cmd.NewApp().Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("furnishop exited with error")
	}
}
