package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"recipehub/pkg/logging"
)

const defaultBaseURL = "http://localhost:3000"

func main() {
	logging.Setup(logging.DefaultConfig())

	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("recipehub")
	}
}

func newApp(out io.Writer) *cli.Command {
	client := func(cmd *cli.Command, auth bool) (*apiClient, error) {
		c := newAPIClient(cmd.String("api"), "")
		if auth {
			token, err := readToken(cmd.String("token-file"))
			if err != nil {
				return nil, err
			}
			c.Token = token
		}
		return c, nil
	}

	printJSON := func(v any) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	credentials := []cli.Flag{
		&cli.StringFlag{Name: "username", Required: true},
		&cli.StringFlag{Name: "password", Required: true, Sources: cli.EnvVars("RECIPEHUB_PASSWORD")},
	}

	login := func(path string) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			c, _ := client(cmd, false)
			var resp struct {
				Token string `json:"token"`
			}
			payload := map[string]string{"username": cmd.String("username"), "password": cmd.String("password")}
			if err := c.do(ctx, http.MethodPost, path, nil, payload, &resp); err != nil {
				return err
			}
			if err := saveToken(cmd.String("token-file"), resp.Token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			fmt.Fprintln(out, "logged in as", cmd.String("username"))
			return nil
		}
	}

	return &cli.Command{
		Name:  "recipehub",
		Usage: "browse recipes and manage saved recipes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: defaultBaseURL, Usage: "API base URL", Sources: cli.EnvVars("RECIPEHUB_API")},
			&cli.StringFlag{Name: "token-file", Value: defaultTokenPath(), Usage: "token file path"},
		},
		Commands: []*cli.Command{
			{
				Name: "auth",
				Commands: []*cli.Command{
					{Name: "register", Flags: credentials, Action: login("/auth/register")},
					{Name: "login", Flags: credentials, Action: login("/auth/login")},
					{
						Name: "logout",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							if c, err := client(cmd, true); err == nil {
								// revoke server side too; a stale token file is still cleared
								if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil); err != nil {
									log.Warn().Err(err).Msg("server logout")
								}
							}
							if err := clearToken(cmd.String("token-file")); err != nil {
								return err
							}
							fmt.Fprintln(out, "logged out")
							return nil
						},
					},
				},
			},
			{
				Name: "recipes",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "filter the catalog",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "q", Usage: "name contains"},
							&cli.StringSliceFlag{Name: "diet"},
							&cli.StringSliceFlag{Name: "health"},
							&cli.StringFlag{Name: "ingredient"},
							&cli.FloatFlag{Name: "min-calories"},
							&cli.FloatFlag{Name: "max-calories"},
							&cli.IntFlag{Name: "limit", Value: 20},
							&cli.IntFlag{Name: "offset"},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							c, _ := client(cmd, false)
							var resp map[string]any
							if err := c.do(ctx, http.MethodGet, "/recipes", listQuery(cmd), nil, &resp); err != nil {
								return err
							}
							return printJSON(resp)
						},
					},
					{
						Name:      "search",
						ArgsUsage: "<keyword>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							kw := strings.TrimSpace(cmd.Args().First())
							if kw == "" {
								return fmt.Errorf("keyword is required")
							}
							c, _ := client(cmd, false)
							var resp []map[string]any
							if err := c.do(ctx, http.MethodGet, "/recipes/search/"+url.PathEscape(kw), nil, nil, &resp); err != nil {
								return err
							}
							return printJSON(resp)
						},
					},
					{
						Name: "random",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							c, _ := client(cmd, false)
							var resp map[string]any
							if err := c.do(ctx, http.MethodGet, "/recipes/random", nil, nil, &resp); err != nil {
								return err
							}
							return printJSON(resp)
						},
					},
					{
						Name:      "show",
						ArgsUsage: "<recipe-id>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							id := cmd.Args().First()
							if id == "" {
								return fmt.Errorf("recipe id is required")
							}
							c, _ := client(cmd, false)
							var resp map[string]any
							if err := c.do(ctx, http.MethodGet, "/recipes/"+url.PathEscape(id), nil, nil, &resp); err != nil {
								return err
							}
							return printJSON(resp)
						},
					},
				},
			},
			{
				Name: "saved",
				Commands: []*cli.Command{
					{
						Name: "list",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20},
							&cli.IntFlag{Name: "offset"},
						},
						Action: func(ctx context.Context, cmd *cli.Command) error {
							c, err := client(cmd, true)
							if err != nil {
								return err
							}
							q := url.Values{}
							q.Set("limit", strconv.Itoa(int(cmd.Int("limit"))))
							q.Set("offset", strconv.Itoa(int(cmd.Int("offset"))))
							var resp map[string]any
							if err := c.do(ctx, http.MethodGet, "/users/me/recipes", q, nil, &resp); err != nil {
								return err
							}
							return printJSON(resp)
						},
					},
					{
						Name:      "add",
						ArgsUsage: "<recipe-id>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							c, err := client(cmd, true)
							if err != nil {
								return err
							}
							var resp map[string]any
							payload := map[string]string{"recipe_id": cmd.Args().First()}
							if err := c.do(ctx, http.MethodPost, "/users/me/recipes", nil, payload, &resp); err != nil {
								return err
							}
							return printJSON(resp)
						},
					},
					{
						Name:      "remove",
						ArgsUsage: "<recipe-id>",
						Action: func(ctx context.Context, cmd *cli.Command) error {
							c, err := client(cmd, true)
							if err != nil {
								return err
							}
							path := "/users/me/recipes/" + url.PathEscape(cmd.Args().First())
							if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
								return err
							}
							fmt.Fprintln(out, "removed")
							return nil
						},
					},
				},
			},
		},
	}
}

func listQuery(cmd *cli.Command) url.Values {
	q := url.Values{}
	if s := cmd.String("q"); s != "" {
		q.Set("q", s)
	}
	for _, d := range cmd.StringSlice("diet") {
		q.Add("diet", d)
	}
	for _, h := range cmd.StringSlice("health") {
		q.Add("health", h)
	}
	if s := cmd.String("ingredient"); s != "" {
		q.Set("ingredient", s)
	}
	if cmd.IsSet("min-calories") {
		q.Set("min_calories", strconv.FormatFloat(cmd.Float("min-calories"), 'f', -1, 64))
	}
	if cmd.IsSet("max-calories") {
		q.Set("max_calories", strconv.FormatFloat(cmd.Float("max-calories"), 'f', -1, 64))
	}
	q.Set("limit", strconv.Itoa(int(cmd.Int("limit"))))
	q.Set("offset", strconv.Itoa(int(cmd.Int("offset"))))
	return q
}
