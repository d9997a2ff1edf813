package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) SetPassphrase(ctx context.Context) error {
	pw, err := GetPassphrase(os.Stdout)
	if err != nil {
		return err
	}
	if pw == "" {
		fmt.Println("Passphrase unchanged.")
		return nil
	}

	if _, err := a.keys.ReinitializeFromPassphrase(ctx, pw); err != nil {
		log.Println(err.Error())
		return err
	}

	fmt.Println("Encryption key derived from passphrase. Rows written before now keep their old ciphertext.")
	return nil
}
