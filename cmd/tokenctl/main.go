// Command tokenctl mints bearer tokens for the attendance API and can register
// the matching user row so check-ins resolve to a student.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"qrattend/internal/attendance"
	"qrattend/internal/auth"
	"qrattend/internal/config"
	"qrattend/internal/store"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	user      string
	role      string
	ttl       time.Duration
	register  bool
	studentID string
	number    string
	name      string
	email     string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("tokenctl", flag.ContinueOnError)
	fs.StringVar(&o.user, "user", "", "username (token subject)")
	fs.StringVar(&o.role, "role", attendance.RoleStudent, "role: ADMIN or STUDENT")
	fs.DurationVar(&o.ttl, "ttl", 0, "token lifetime (default ACCESS_TTL)")
	fs.BoolVar(&o.register, "register", false, "upsert the user row in the database")
	fs.StringVar(&o.studentID, "student-id", "", "existing student id to link (with -register)")
	fs.StringVar(&o.number, "student-number", "", "create a student with this number and link it (with -register)")
	fs.StringVar(&o.name, "name", "", "full name for a created student")
	fs.StringVar(&o.email, "email", "", "email for a created student")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	o.role = strings.ToUpper(o.role)
	if o.user == "" {
		return options{}, errors.New("-user is required")
	}
	if o.role != attendance.RoleAdmin && o.role != attendance.RoleStudent {
		return options{}, fmt.Errorf("unknown role %q", o.role)
	}
	if o.studentID != "" && o.number != "" {
		return options{}, errors.New("use either -student-id or -student-number")
	}
	if (o.studentID != "" || o.number != "") && !o.register {
		return options{}, errors.New("-student-id and -student-number need -register")
	}
	return o, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.ttl <= 0 {
		o.ttl = cfg.AccessTTL
	}

	var studentID string
	if o.register {
		if studentID, err = register(ctx, cfg, o); err != nil {
			return err
		}
	}

	tok, err := auth.Issue(o.user, o.role, cfg.JWTIssuer, cfg.JWTSigningKey, o.ttl)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		auth.AccessToken
		Username  string `json:"username"`
		Role      string `json:"role"`
		StudentID string `json:"studentId,omitempty"`
	}{tok, o.user, o.role, studentID})
}

func register(ctx context.Context, cfg config.App, o options) (string, error) {
	db, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return "", fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	repo := attendance.NewRepository(db.Client)

	studentID := o.studentID
	switch {
	case o.number != "":
		st, err := repo.CreateStudent(ctx, attendance.Student{StudentNumber: o.number, FullName: o.name, Email: o.email})
		if err != nil {
			return "", err
		}
		studentID = st.ID
	case studentID != "":
		st, err := repo.GetStudent(ctx, studentID)
		if err != nil {
			return "", fmt.Errorf("load student: %w", err)
		}
		if st == nil {
			return "", fmt.Errorf("student %s not found", studentID)
		}
	}

	u := attendance.User{Username: o.user, Role: o.role}
	if studentID != "" {
		u.StudentID = &studentID
	}
	if err := repo.UpsertUser(ctx, u); err != nil {
		return "", err
	}
	return studentID, nil
}
