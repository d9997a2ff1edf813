package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/showmeapp/showme/internal/client/models"
)

func (a *App) AddPin(ctx context.Context) error {
	mapID, err := GetSimpleText(a.reader, "Map id", os.Stdout)
	if err != nil {
		return err
	}
	lat, err := GetFloat(a.reader, "Latitude", os.Stdout)
	if err != nil {
		return err
	}
	lng, err := GetFloat(a.reader, "Longitude", os.Stdout)
	if err != nil {
		return err
	}
	typ, err := GetSimpleText(a.reader, "Type (medical/water/checkpoint/shelter/food/danger/other, empty for none)", os.Stdout)
	if err != nil {
		return err
	}
	desc, err := GetSimpleText(a.reader, "Description", os.Stdout)
	if err != nil {
		return err
	}
	rawTags, err := GetSimpleText(a.reader, "Tags, comma-separated", os.Stdout)
	if err != nil {
		return err
	}

	var tags []string
	for _, t := range strings.Split(rawTags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	id, err := a.pinService.Add(ctx, models.PinData{
		MapID:       mapID,
		Lat:         lat,
		Lng:         lng,
		Type:        models.PinType(typ),
		Tags:        tags,
		Description: desc,
	})
	if err != nil {
		log.Println(err.Error())
		return err
	}

	fmt.Printf("Added pin %s\n", id)
	return nil
}
