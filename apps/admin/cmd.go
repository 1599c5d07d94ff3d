package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/marksheet/core/faculty"
	"github.com/trezcool/marksheet/core/marks"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	validate   *validator.Validate
	facultySvc *faculty.Service
	marksSvc   *marks.Service
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  addfaculty -email EMAIL -name NAME -employee-id ID - update or create a faculty; the password is prompted next")
	fmt.Fprintln(cli.out, "  assign -email EMAIL -class CLASS -subject SUBJECT - allow a faculty to record marks for a class subject")
	fmt.Fprintln(cli.out, "  unassign -email EMAIL -class CLASS -subject SUBJECT - revoke an assignment")
	fmt.Fprintln(cli.out, "  importstudents -file ROSTER.xlsx - update or create students and their enrollments")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addFacultyCmd := flag.NewFlagSet("addfaculty", flag.ExitOnError)
	addFacultyEmail := addFacultyCmd.String("email", "", "The faculty's login email.")
	addFacultyName := addFacultyCmd.String("name", "", "The faculty's display name.")
	addFacultyEmpID := addFacultyCmd.String("employee-id", "", "The faculty's employee id.")

	assignCmd := flag.NewFlagSet(args[1], flag.ExitOnError)
	assignEmail := assignCmd.String("email", "", "The faculty's login email.")
	assignClass := assignCmd.String("class", "", "The class name, e.g. 10A.")
	assignSubject := assignCmd.String("subject", "", "The subject, e.g. Math.")

	importCmd := flag.NewFlagSet("importstudents", flag.ExitOnError)
	importFile := importCmd.String("file", "", "The roster workbook (columns: student_id, name, class_name, subjects).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addfaculty":
		if err := addFacultyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addFacultyEmail == "" || *addFacultyName == "" || *addFacultyEmpID == "" {
			addFacultyCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addFacultyCmd.Usage()
			return errHelp
		}
		return cli.addFaculty(*addFacultyEmail, *addFacultyName, *addFacultyEmpID, string(pwd))

	case "assign", "unassign":
		if err := assignCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *assignEmail == "" {
			assignCmd.Usage()
			return errHelp
		}
		a := faculty.Assignment{ClassName: *assignClass, Subject: *assignSubject}
		if args[1] == "assign" {
			return cli.assign(*assignEmail, a)
		}
		return cli.unassign(*assignEmail, a)

	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*importFile)

	default:
		cli.printUsage()
		return errHelp
	}
}
