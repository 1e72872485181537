package boot

import (
	"log"
	"time"

	"boxoffice/src/db"
	"boxoffice/src/lib"
	"boxoffice/src/models"
	"boxoffice/src/services"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.Tournament{},
		&models.Event{},
		&models.Category{},
		&models.SalesChannel{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStateLog{},
		&models.WebhookEvent{},
		&models.PaymentLog{},
		&models.NotificationOutbox{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	if err := services.EnsureDefaultSalesChannel(); err != nil {
		log.Printf("error seeding default sales channel: %s\n", err.Error())
	}

	return db
}

// InitScheduler registers the outbox retry sweep and the sent-row cleanup.
func InitScheduler() {
	_, err := lib.CreateCronJob(func() {
		attempted, err := services.RetryPending()
		if err != nil {
			log.Printf("outbox retry sweep failed: %s\n", err.Error())
			return
		}
		if attempted > 0 {
			log.Printf("outbox retry sweep attempted %d notifications\n", attempted)
		}
	}, 1*time.Minute)
	if err != nil {
		log.Printf("Error registering outbox retry job: %s\n", err.Error())
		return
	}
	_, err = lib.CreateCronJob(func() {
		deleted, err := services.CleanupSent()
		if err != nil {
			log.Printf("outbox cleanup failed: %s\n", err.Error())
			return
		}
		if deleted > 0 {
			log.Printf("outbox cleanup removed %d sent notifications\n", deleted)
		}
	}, 24*time.Hour)
	if err != nil {
		log.Printf("Error registering outbox cleanup job: %s\n", err.Error())
		return
	}
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	jobsWaitingInQueue := len(sched.Jobs())
	log.Println("Jobs in queue:", jobsWaitingInQueue)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
	}
}
