package suites

import (
	"context"
	"net/http"

	"github.com/verityqa/verity/internal/suite"
)

func init() {
	suite.Register("api",
		suite.Scenario{
			Name: "health endpoint responds",
			Tags: []string{"smoke", "api"},
			Steps: []suite.Step{
				{Name: "GET /health", Run: func(ctx context.Context, sc *suite.ScenarioContext) error {
					resp, err := sc.API.Get(ctx, "/health")
					if err != nil {
						return err
					}
					if err := resp.ExpectStatus(http.StatusOK); err != nil {
						return err
					}
					return resp.ExpectJSONField("status", "up")
				}},
			},
		},
		suite.Scenario{
			Name: "session endpoint rejects bad credentials",
			Tags: []string{"api"},
			Steps: []suite.Step{
				{Name: "POST /session", Run: func(ctx context.Context, sc *suite.ScenarioContext) error {
					resp, err := sc.API.Post(ctx, "/session", map[string]string{
						"username": "standard_user",
						"password": "wrong_password",
					})
					if err != nil {
						return err
					}
					return resp.ExpectStatus(http.StatusUnauthorized)
				}},
			},
		},
	)
}
