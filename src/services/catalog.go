package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boxoffice/src/config"
	"boxoffice/src/db"
	"boxoffice/src/lib"
	"boxoffice/src/models"
	"boxoffice/src/types"
	"boxoffice/src/utils"

	"gorm.io/gorm"
)

// CreateTournament creates a tournament with a slug derived from its name.
// When the plain slug is already taken a random suffix is appended, so two
// tournaments with the same name can coexist.
func CreateTournament(body *types.CreateTournamentRequestBody) (*models.Tournament, error) {
	conn := db.GetDb()
	tournament := &models.Tournament{
		Name:     body.Name,
		Slug:     utils.Slugify(body.Name),
		Type:     body.Type,
		Year:     body.Year,
		Venue:    body.Venue,
		IsActive: true,
	}
	err := conn.Create(tournament).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		tournament.Slug = utils.UniqueSlug(body.Name)
		err = conn.Create(tournament).Error
	}
	if err != nil {
		return nil, err
	}
	return tournament, nil
}

// CreateEvent creates an event under an active tournament, with its
// categories and a unique slug derived from the title. Display fields are
// derived once from the parsed event date; order items snapshot them later.
func CreateEvent(body *types.CreateEventRequestBody) (*models.Event, error) {
	conn := db.GetDb()

	var tournament models.Tournament
	err := conn.Where("id = ? AND is_active = ?", body.TournamentID, true).First(&tournament).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.TournamentNotFoundError(body.TournamentID)
	}
	if err != nil {
		return nil, err
	}

	eventDate, err := time.Parse(config.TIME_PARSE_FORMAT, body.EventDate)
	if err != nil {
		return nil, types.NewServiceError(
			types.ErrCodeValidation,
			fmt.Sprintf("event_date must match the format %q", config.TIME_PARSE_FORMAT),
			map[string]any{"event_date": body.EventDate},
		)
	}

	event := &models.Event{
		TournamentID: tournament.ID,
		Title:        body.Title,
		Slug:         utils.Slugify(body.Title),
		EventDate:    eventDate,
		Date:         eventDate.Format("2"),
		Day:          eventDate.Format("Monday"),
		Month:        eventDate.Format("January"),
		Time:         eventDate.Format("15:04"),
		IsActive:     true,
	}
	for _, input := range body.Categories {
		event.Categories = append(event.Categories, models.Category{
			Name:           input.Name,
			Price:          input.Price,
			Color:          input.Color,
			SeatsTotal:     input.SeatsTotal,
			SeatsAvailable: input.SeatsTotal,
			SortOrder:      input.SortOrder,
			IsActive:       true,
			ShowOnFrontend: true,
		})
	}

	err = insertEvent(conn, event)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		event.Slug = utils.UniqueSlug(body.Title)
		err = insertEvent(conn, event)
	}
	if err != nil {
		return nil, err
	}

	lib.CacheDel(context.Background(), eventListCacheKey)
	return event, nil
}

func insertEvent(conn *gorm.DB, event *models.Event) error {
	return conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		if err := RecalculateMinPrice(tx, event.ID); err != nil {
			return err
		}
		return tx.First(event, event.ID).Error
	})
}
