package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trezcool/marksheet/core/marks"
)

func (cli *commandLine) importStudents(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	students, err := marks.ParseRoster(file)
	if err != nil {
		return err
	}
	n, err := cli.marksSvc.ImportStudents(context.Background(), students)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "imported %d student(s)\n", n)
	return nil
}
