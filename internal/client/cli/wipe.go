package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/showmeapp/showme/internal/common"
)

func (a *App) Wipe(ctx context.Context) error {
	ok, err := GetYesNo(a.reader, "Destroy all local data and queued operations?", os.Stdout)
	if err != nil || !ok {
		return err
	}

	if err := a.wipeService.PanicWipe(ctx); err != nil {
		if errors.Is(err, common.ErrWipeCooldown) {
			fmt.Println("Wipe is on cooldown; try again shortly.")
		} else {
			log.Println(err.Error())
		}
		return err
	}

	fmt.Println("Local data destroyed.")
	return nil
}
