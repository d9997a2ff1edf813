package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) AddMap(ctx context.Context) error {
	name, err := GetSimpleText(a.reader, "Map name", os.Stdout)
	if err != nil {
		return err
	}
	private, err := GetYesNo(a.reader, "Private map?", os.Stdout)
	if err != nil {
		return err
	}
	fuzz, err := GetYesNo(a.reader, "Fuzz pin coordinates?", os.Stdout)
	if err != nil {
		return err
	}
	var radius float64
	if fuzz {
		if radius, err = GetFloat(a.reader, "Fuzzing radius in meters (empty for default)", os.Stdout); err != nil {
			return err
		}
	}

	created, err := a.mapService.Create(ctx, name, private, fuzz, radius)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	fmt.Printf("Created map %s\n", created.ID)
	if created.AccessToken != "" {
		fmt.Printf("Access token (share to invite): %s\n", created.AccessToken)
	}
	return nil
}
