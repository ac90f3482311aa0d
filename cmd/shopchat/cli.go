package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"shopchat/internal/chat"
	"shopchat/internal/config"
	"shopchat/internal/errors"
	"shopchat/internal/shop"
	"shopchat/internal/web"
)

// appEnv carries the wired engine into CLI actions.
type appEnv struct {
	engine *chat.Engine
	cfg    *config.Config
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "shopchat",
		Usage:   "Shopping-assistant chat client",
		Version: Version,
		Commands: []*cli.Command{
			identifyCmd(env),
			logoutCmd(env),
			sendCmd(env),
			moreCmd(env),
			historyCmd(env),
			contextCmd(env),
			clearCmd(env),
			serveCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// identifyCmd creates the identify command.
func identifyCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "identify",
		Usage:     "Identify the user by email so history survives across devices",
		ArgsUsage: "<email>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "new-session", Usage: "Force a fresh backend session instead of resuming one"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("email argument is required"))
			}

			ident, reused, err := env.engine.Sessions().Identify(c.Context, c.Args().First(), c.Bool("new-session"))
			if err != nil {
				return outputError(err)
			}
			env.engine.Hydrate(c.Context)

			return outputJSON(map[string]any{
				"email":         ident.Email,
				"user_id":       ident.UserID,
				"session_token": ident.SessionToken,
				"reused":        reused,
			})
		},
	}
}

// logoutCmd creates the logout command.
func logoutCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the stored identity and continue anonymously",
		Action: func(c *cli.Context) error {
			env.engine.Sessions().Forget()
			return outputJSON(map[string]any{"identified": false})
		},
	}
}

// sendCmd creates the send command.
func sendCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Send one message to the shopping assistant",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "max-results", Aliases: []string{"n"}, Usage: "Cap on results per list"},
			&cli.StringFlag{Name: "filters", Usage: "Search filters as a JSON object"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("message argument is required"))
			}

			opts := chat.SendOptions{MaxResults: c.Int("max-results")}
			if raw := c.String("filters"); raw != "" {
				if err := json.Unmarshal([]byte(raw), &opts.Filters); err != nil {
					return outputError(errors.NewInvalidRequest("filters must be a JSON object"))
				}
			}

			turn, err := env.engine.Send(c.Context, c.Args().First(), opts)
			if err != nil {
				return outputError(err)
			}
			if turn == nil {
				return outputError(errors.NewInvalidRequest("message is empty"))
			}

			return outputJSON(map[string]any{
				"turn":    turn,
				"context": env.engine.Focus(),
			})
		},
	}
}

// moreCmd creates the more command.
func moreCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "more",
		Usage:     "Load the next page of the last search for one result list",
		ArgsUsage: "<exact|suggestions>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("list kind argument is required (exact or suggestions)"))
			}

			kind := shop.ListKind(c.Args().First())
			turn, err := env.engine.LoadMore(c.Context, kind)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"turn":   turn,
				"cursor": env.engine.Cursor(kind),
			})
		},
	}
}

// historyCmd creates the history command.
func historyCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the conversation transcript",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "remote", Usage: "Fetch the backend transcript instead of the local timeline"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("remote") {
				hist, err := env.engine.History(c.Context)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(hist)
			}

			turns := env.engine.Turns()
			return outputJSON(map[string]any{
				"turns": turns,
				"count": len(turns),
			})
		},
	}
}

// contextCmd creates the context command.
func contextCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "context",
		Usage: "Show the focused product and pagination cursors",
		Action: func(c *cli.Context) error {
			return outputJSON(map[string]any{
				"context": env.engine.Focus(),
				"cursors": map[string]shop.Cursor{
					string(shop.ListExact):       env.engine.Cursor(shop.ListExact),
					string(shop.ListSuggestions): env.engine.Cursor(shop.ListSuggestions),
				},
			})
		},
	}
}

// clearCmd creates the clear command.
func clearCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Reset the conversation: timeline, focused product, cursors, and session token",
		Action: func(c *cli.Context) error {
			if err := env.engine.ResetConversation(c.Context); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{
				"cleared":       true,
				"session_token": env.engine.Sessions().Current().SessionToken,
			})
		},
	}
}

// serveCmd creates the serve command for the full-page web variant.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the full-page chat UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8970, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(env.engine, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if shopErr, ok := err.(*errors.ShopError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", shopErr.Code, shopErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
