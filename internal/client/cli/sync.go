package cli

import (
	"context"
	"fmt"
)

func (a *App) Sync(ctx context.Context) error {
	if !a.sess.Online() {
		fmt.Println("Offline; queued operations go out automatically on reconnect.")
		return nil
	}

	a.queue.ProcessQueue(ctx)
	fmt.Printf("%d operation(s) pending\n", a.queue.Len())
	return nil
}
