// Command notes is a CLI client for the notes service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/and161185/notekeeper/internal/client"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

var errLoginRequired = errors.New("no valid token (login required)")

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "notekeeper")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "notekeeper")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errLoginRequired
		}
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || !time.Now().Before(tf.ExpiresAt) {
		return "", errLoginRequired
	}
	return tf.AccessToken, nil
}

func dropToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ---- utils ----

func readAll(p string, stdin io.Reader) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

const usageText = `notes CLI
Usage:
  notes [-addr URL] <cmd> [args]

Commands:
  version
  health
  register   -name <name> -email <email> -p <password>   (or -u <username>)
  login      -email <email> -p <password>                (or -u <username>; saves token)
  logout
  whoami
  list
  get        -id <uuid>
  add        -title <title> (-content <text> | -file <path|->)
  edit       -id <uuid> [-title <title>] [-content <text> | -file <path|->]
  rm         -id <uuid>
`

var (
	version   = "dev"
	buildDate = "unknown"
)

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// run dispatches one subcommand; main only maps the outcome to an exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	gfs := flag.NewFlagSet("notes", flag.ContinueOnError)
	gfs.SetOutput(io.Discard)
	addr := gfs.String("addr", envOr("NOTES_URL", "http://localhost:8080"), "API base URL including any prefix")
	if err := gfs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if gfs.NArg() < 1 {
		return usageError{"missing command"}
	}
	cmd, rest := gfs.Arg(0), gfs.Args()[1:]
	api := client.New(*addr, nil)

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "notes %s (%s)\n", version, buildDate)
		return nil

	case "health":
		if err := api.Health(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
		return nil

	case "register":
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email")
		user := fs.String("u", "", "username")
		pass := fs.String("p", "", "password")
		if err := fs.Parse(rest); err != nil {
			return usageError{err.Error()}
		}
		if *pass == "" || (*email == "" && *user == "") {
			return usageError{"need -p and -email or -u"}
		}
		s, err := api.Register(ctx, client.Registration{Name: *name, Username: *user, Email: *email, Password: *pass})
		if err != nil {
			return err
		}
		if err := saveToken(s.Token, s.ExpiresAt); err != nil {
			return err
		}
		fmt.Fprintln(stdout, s.User.ID)
		return nil

	case "login":
		email := fs.String("email", "", "email")
		user := fs.String("u", "", "username")
		pass := fs.String("p", "", "password")
		if err := fs.Parse(rest); err != nil {
			return usageError{err.Error()}
		}
		if *pass == "" || (*email == "" && *user == "") {
			return usageError{"need -p and -email or -u"}
		}
		s, err := api.Login(ctx, client.Credentials{Email: *email, Username: *user, Password: *pass})
		if err != nil {
			return err
		}
		if err := saveToken(s.Token, s.ExpiresAt); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
		return nil

	case "logout":
		if tok, err := loadToken(); err == nil {
			// server side is an acknowledgement only
			_ = api.Logout(ctx, tok)
		}
		if err := dropToken(); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
		return nil
	}

	tok, err := loadToken()
	if err != nil {
		return err
	}

	switch cmd {
	case "whoami":
		u, err := api.Profile(ctx, tok)
		if err != nil {
			return err
		}
		printJSON(stdout, u)

	case "list":
		ns, err := api.ListNotes(ctx, tok)
		if err != nil {
			return err
		}
		type row struct{ ID, Title, UpdatedAt string }
		rows := make([]row, 0, len(ns))
		for _, n := range ns {
			rows = append(rows, row{ID: n.ID, Title: n.Title, UpdatedAt: n.UpdatedAt.Format(time.RFC3339)})
		}
		printJSON(stdout, rows)

	case "get":
		id := fs.String("id", "", "note id")
		if err := fs.Parse(rest); err != nil {
			return usageError{err.Error()}
		}
		if *id == "" {
			return usageError{"need -id"}
		}
		n, err := api.GetNote(ctx, tok, *id)
		if err != nil {
			return err
		}
		printJSON(stdout, n)

	case "add":
		title := fs.String("title", "", "title")
		content := fs.String("content", "", "content")
		file := fs.String("file", "", "read content from file ('-' for stdin)")
		if err := fs.Parse(rest); err != nil {
			return usageError{err.Error()}
		}
		body, err := contentArg(*content, *file, stdin)
		if err != nil {
			return err
		}
		if *title == "" || body == nil {
			return usageError{"need -title and -content or -file"}
		}
		n, err := api.CreateNote(ctx, tok, *title, *body)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, n.ID)

	case "edit":
		id := fs.String("id", "", "note id")
		title := fs.String("title", "", "new title")
		content := fs.String("content", "", "new content")
		file := fs.String("file", "", "read new content from file ('-' for stdin)")
		if err := fs.Parse(rest); err != nil {
			return usageError{err.Error()}
		}
		if *id == "" {
			return usageError{"need -id"}
		}
		var p client.NotePatch
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "title" {
				p.Title = title
			}
		})
		if p.Content, err = contentArg(*content, *file, stdin); err != nil {
			return err
		}
		n, err := api.UpdateNote(ctx, tok, *id, p)
		if err != nil {
			return err
		}
		printJSON(stdout, n)

	case "rm":
		id := fs.String("id", "", "note id")
		if err := fs.Parse(rest); err != nil {
			return usageError{err.Error()}
		}
		if *id == "" {
			return usageError{"need -id"}
		}
		if err := api.DeleteNote(ctx, tok, *id); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")

	default:
		return usageError{"unknown command " + cmd}
	}
	return nil
}

// contentArg picks -file over -content; nil means neither was given.
func contentArg(content, file string, stdin io.Reader) (*string, error) {
	if file != "" {
		b, err := readAll(file, stdin)
		if err != nil {
			return nil, err
		}
		s := string(b)
		return &s, nil
	}
	if content != "" {
		return &content, nil
	}
	return nil, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	var ue usageError
	switch {
	case err == nil:
	case errors.As(err, &ue):
		fmt.Fprintln(os.Stderr, "error:", ue.msg)
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
