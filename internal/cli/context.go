// Package cli provides the command-line interface for scholarfetch.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/law-makers/scholarfetch/internal/app"
)

// ctxKey is used for storing app context in cobra commands
type ctxKey string

const appKey ctxKey = "app"

// SetApp stores the Application in the command's context. A nil app
// clears it.
func SetApp(cmd *cobra.Command, a *app.Application) {
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appKey, a))
}

// GetAppFromCmd retrieves the Application stored on cmd or any parent
func GetAppFromCmd(cmd *cobra.Command) *app.Application {
	for c := cmd; c != nil; c = c.Parent() {
		if ctx := c.Context(); ctx != nil {
			if a, ok := ctx.Value(appKey).(*app.Application); ok && a != nil {
				return a
			}
		}
	}
	return nil
}
