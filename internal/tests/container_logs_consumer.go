package tests

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/testcontainers/testcontainers-go"
)

type containerLogConsumer struct {
	file *os.File
}

func newContainerLogConsumer(containerName string) *containerLogConsumer {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	logsDir := filepath.Join(wd, "containerlogs")
	err = os.MkdirAll(logsDir, 0o755)
	if err != nil {
		panic(err)
	}
	file, err := os.Create(filepath.Join(logsDir, fmt.Sprintf("%s.log", containerName)))
	if err != nil {
		panic(err)
	}
	return &containerLogConsumer{
		file: file,
	}
}

func (c *containerLogConsumer) Accept(log testcontainers.Log) {
	w := bufio.NewWriter(c.file)
	_, err := w.Write(log.Content)
	if err != nil {
		panic(err)
	}
	err = w.Flush()
	if err != nil {
		panic(err)
	}
}
