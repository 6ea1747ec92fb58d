// Package suites holds the scenarios shipped with the binary. Each file
// registers one suite at init time; the run command selects them by name.
package suites

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/verityqa/verity/internal/browser/locator"
	"github.com/verityqa/verity/internal/data"
	"github.com/verityqa/verity/internal/suite"
)

var (
	usernameField = locator.ID("user-name")
	passwordField = locator.ID("password")
	loginButton   = locator.ID("login-button")
	errorBanner   = locator.CSS("[data-test=error]")
	inventoryList = locator.ID("inventory_container")
)

func init() {
	suite.Register("login",
		suite.Scenario{
			Name: "login with valid credentials",
			Tags: []string{"smoke", "login"},
			Steps: []suite.Step{
				openLoginPage(),
				typeCredentials("standard_user", "secret_sauce"),
				submitLogin(),
				expectVisible(inventoryList),
			},
		},
		suite.Scenario{
			Name: "login rejects a bad password",
			Tags: []string{"login"},
			Steps: []suite.Step{
				openLoginPage(),
				typeCredentials("standard_user", "wrong_password"),
				submitLogin(),
				expectVisible(errorBanner),
			},
		},
		suite.Scenario{
			Name: "data driven logins",
			Tags: []string{"login", "regression"},
			Steps: []suite.Step{
				{Name: "run each fixture row", Run: runFixtureLogins},
			},
		},
	)
}

func openLoginPage() suite.Step {
	return suite.Step{Name: "open login page", Run: func(ctx context.Context, sc *suite.ScenarioContext) error {
		base, err := sc.Config.RequireBaseURL()
		if err != nil {
			return err
		}
		return sc.Session.Navigate(ctx, base)
	}}
}

func typeCredentials(username, password string) suite.Step {
	return suite.Step{Name: "enter credentials", Run: func(ctx context.Context, sc *suite.ScenarioContext) error {
		if _, err := sc.Browser.Type(ctx, usernameField, username); err != nil {
			return err
		}
		_, err := sc.Browser.Type(ctx, passwordField, password)
		return err
	}}
}

func submitLogin() suite.Step {
	return suite.Step{Name: "submit login", Run: func(ctx context.Context, sc *suite.ScenarioContext) error {
		out, err := sc.Browser.Click(ctx, loginButton)
		if err != nil {
			return err
		}
		if out.Degraded() {
			sc.Logger.Warn("Login click needed a recovery strategy",
				zap.String("strategy", string(out.Strategy)))
		}
		return nil
	}}
}

func expectVisible(loc locator.Locator) suite.Step {
	return suite.Step{Name: fmt.Sprintf("expect %s visible", loc), Run: func(ctx context.Context, sc *suite.ScenarioContext) error {
		visible, err := sc.Browser.IsDisplayed(ctx, loc)
		if err != nil {
			return err
		}
		if !visible {
			return fmt.Errorf("expected %s to be visible", loc)
		}
		return nil
	}}
}

// runFixtureLogins walks the login fixture and verifies each row's expected
// outcome, so the whole matrix lives in data instead of code.
func runFixtureLogins(ctx context.Context, sc *suite.ScenarioContext) error {
	reader := data.NewJSONReader(filepath.Join(sc.Config.Data.Dir, "logins.json"))
	records, err := reader.ReadRows(ctx, "logins")
	if err != nil {
		return fmt.Errorf("login fixture: %w", err)
	}
	if err := data.RequireColumns(records, "Username", "Password", "ExpectedResult"); err != nil {
		return err
	}

	base, err := sc.Config.RequireBaseURL()
	if err != nil {
		return err
	}

	for i, rec := range records {
		username, _ := rec.Get("Username")
		password, _ := rec.Get("Password")
		expected, _ := rec.Get("ExpectedResult")
		sc.Logger.Info("Fixture row",
			zap.Int("row", i),
			zap.String("username", username),
			zap.String("expected", expected))

		if err := sc.Session.Navigate(ctx, base); err != nil {
			return err
		}
		if _, err := sc.Browser.Type(ctx, usernameField, username); err != nil {
			return err
		}
		if _, err := sc.Browser.Type(ctx, passwordField, password); err != nil {
			return err
		}
		if _, err := sc.Browser.Click(ctx, loginButton); err != nil {
			return err
		}

		want := inventoryList
		if expected != "success" {
			want = errorBanner
		}
		visible, err := sc.Browser.IsDisplayed(ctx, want)
		if err != nil {
			return err
		}
		if !visible {
			return fmt.Errorf("row %d (%s): expected %s outcome, %s not visible",
				i, username, expected, want)
		}
	}
	return nil
}
