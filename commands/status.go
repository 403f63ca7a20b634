package commands

import "context"

// StatusCommand reports the running bridge's engine state
func StatusCommand(ctx context.Context, c *Client) *CommandResponse {
	return c.call(ctx, "status", nil)
}

// CloseCommand tears the overlay down and stops the server
func CloseCommand(ctx context.Context, c *Client) *CommandResponse {
	return c.call(ctx, "close", nil)
}
