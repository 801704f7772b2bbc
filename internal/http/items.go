package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrlokans/bibsync/internal/entities"
	"github.com/mrlokans/bibsync/internal/importers"
	"github.com/mrlokans/bibsync/internal/ris"
)

// ItemsController builds target items from exchange text.
type ItemsController struct {
	converter *importers.LocalConverter
}

func NewItemsController(logger zerolog.Logger) *ItemsController {
	return &ItemsController{converter: importers.NewLocalConverter(logger)}
}

type ItemStats struct {
	Entries    int                       `json:"entries"`
	Collective int                       `json:"collective"`
	Authors    int                       `json:"authors"`
	Editors    int                       `json:"editors"`
	ItemTypes  map[entities.ItemType]int `json:"item_types"`
	TopTags    []ris.TagCount            `json:"top_tags"`
}

type ItemsResponse struct {
	Items []entities.Item `json:"items"`
	Stats ItemStats       `json:"stats"`
}

func (ic *ItemsController) Build(c *gin.Context) {
	text, _, err := readText(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	items, stats, err := ic.converter.ConvertWithStats(c.Request.Context(), text)
	if err != nil {
		if errors.Is(err, ris.ErrEmptyContent) || errors.Is(err, ris.ErrNoEntries) {
			respondError(c, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondBadRequest(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, ItemsResponse{
		Items: items,
		Stats: ItemStats{
			Entries:    stats.Entries,
			Collective: stats.Collective,
			Authors:    stats.Authors,
			Editors:    stats.Editors,
			ItemTypes:  stats.ItemTypes,
			TopTags:    stats.TopTags(10),
		},
	})
}
