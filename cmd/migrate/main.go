// Command migrate applies the database schema migrations. With the
// -insert-stage flags it additionally retrofits a new workflow stage across
// every active paper, the way the Senior VP Approval stage was rolled out.
package main

import (
	"context"
	"flag"
	"log"

	"paperflow/internal/config"
	"paperflow/internal/database"
	"paperflow/internal/models"
	"paperflow/internal/service"
	"paperflow/internal/workflow"
)

func main() {
	var (
		afterStage     = flag.String("after-stage", "", "completed checkpoint stage to insert after")
		stageName      = flag.String("insert-stage", "", "name of the new stage to insert across active papers")
		assignedRole   = flag.String("role", "", "workflow role assigned to the new stage")
		deadlineOption = flag.String("deadline-option", "", "deadline option key for the new stage")
		waitDays       = flag.Int("wait-days", 0, "fallback deadline in days when no option key is given")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Migrations applied")

	if *stageName == "" {
		return
	}
	if *afterStage == "" || *assignedRole == "" {
		log.Fatal("-insert-stage requires -after-stage and -role")
	}

	workflows := service.NewWorkflowService(db, workflow.NewTemplateRegistry(), nil)
	inserted, err := workflows.BackfillStage(context.Background(), *afterStage, workflow.InsertionSpec{
		StageName:      *stageName,
		AssignedRole:   models.Role(*assignedRole),
		DeadlineOption: *deadlineOption,
		WaitDays:       *waitDays,
	})
	if err != nil {
		log.Fatalf("Stage backfill failed: %v", err)
	}
	log.Printf("Inserted %q into %d active papers", *stageName, inserted)
}
