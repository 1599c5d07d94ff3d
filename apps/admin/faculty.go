package main

import (
	"context"
	"fmt"

	"github.com/trezcool/marksheet/core/faculty"
)

// addFaculty updates or creates a faculty.Faculty
func (cli *commandLine) addFaculty(email, name, employeeID, pwd string) error {
	nf := faculty.NewFaculty{
		Name:       name,
		Email:      email,
		EmployeeID: employeeID,
		Password:   pwd,
	}
	if err := nf.Validate(cli.validate); err != nil {
		return err
	}
	f, err := cli.facultySvc.Register(context.Background(), nf)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "saved faculty %s <%s>\n", f.EmployeeID, f.Email)
	return nil
}

func (cli *commandLine) assign(email string, a faculty.Assignment) error {
	if err := a.Validate(cli.validate); err != nil {
		return err
	}
	f, err := cli.facultySvc.Assign(context.Background(), email, a)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s is assigned to %d class subject(s)\n", f.Email, len(f.Assignments))
	return nil
}

func (cli *commandLine) unassign(email string, a faculty.Assignment) error {
	if err := a.Validate(cli.validate); err != nil {
		return err
	}
	f, err := cli.facultySvc.Unassign(context.Background(), email, a)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s is assigned to %d class subject(s)\n", f.Email, len(f.Assignments))
	return nil
}
