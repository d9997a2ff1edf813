package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"
)

func (a *App) ListMaps(ctx context.Context) error {
	items, err := a.mapService.GetAll(ctx)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	now := time.Now()
	for _, m := range items {
		line := fmt.Sprintf("%s  %s  created %s", m.ID, m.Name, TimeAgo(m.CreatedAt, now))
		if m.IsPrivate {
			line += "  [private]"
		}
		fmt.Println(line)
	}
	return nil
}

func (a *App) ListPins(ctx context.Context) error {
	mapID, err := GetSimpleText(a.reader, "Map id", os.Stdout)
	if err != nil {
		return err
	}

	items, err := a.pinService.GetByMap(ctx, mapID, false)
	if err != nil {
		log.Println(err.Error())
		return err
	}

	now := time.Now()
	for _, p := range items {
		fmt.Printf("%s %s  (%.5f, %.5f)  %s  %s\n",
			PinEmoji(p), p.ID, p.Lat, p.Lng, p.Description, TimeAgo(p.UpdatedAt, now))
	}
	return nil
}
