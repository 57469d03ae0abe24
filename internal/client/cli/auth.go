package cli

import (
	"context"
	"os"

	"github.com/rizkyab/dicerita/internal/client/offline"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func report(r offline.Result) {
	if r.Err {
		printlnFn("error:", r.Message)
		return
	}
	printlnFn(r.Message)
}

// Register prompts for account details and creates an account, or queues the
// registration when the device is offline.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	report(a.facade.Register(ctx, name, email, password))
	return nil
}

// Login prompts for credentials and authenticates, falling back to the
// cached session when the server is unreachable.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	res := a.facade.Login(ctx, email, password)
	report(res.Result)
	if !res.Err && res.Session != nil {
		a.userName = res.Session.Name
	}
	return nil
}

// Logout drops the cached session.
func (a *App) Logout(ctx context.Context) error {
	report(a.facade.Logout(ctx))
	a.userName = ""
	return nil
}
