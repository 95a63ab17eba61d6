package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"intake/pkg/config"
	"intake/pkg/discovery"
	"intake/pkg/llm/factory"
	"intake/pkg/logx"
	"intake/pkg/persistence"
	"intake/pkg/plan"
)

type app struct {
	cfg     config.Config
	store   *persistence.Store
	clients *factory.Factory
	logger  *logx.Logger
}

// runInterview drives the interactive discovery loop. With an empty
// sessionID a fresh session starts; otherwise the named session resumes.
func (a *app) runInterview(sessionID string) int {
	interviewClient, err := a.clients.NewClient(a.cfg.Models.Interview)
	if err != nil {
		a.logger.Error("interview model unavailable: %v", err)
		return 1
	}
	orch := discovery.NewOrchestrator(a.store, interviewClient, nil, a.cfg.Thresholds, a.cfg.Budgets.Interview)

	if sessionID == "" {
		sess, err := orch.StartSession(context.Background())
		if err != nil {
			a.logger.Error("could not start session: %v", err)
			return 1
		}
		sessionID = sess.ID
		fmt.Printf("Session %s\n\n", sessionID)
		fmt.Printf("%s\n\n", discovery.GreetingMessage)
	} else {
		if exit := a.resumeSession(orch, sessionID); exit != 0 {
			return exit
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			if err := orch.Pause(context.Background(), sessionID); err != nil {
				a.logger.Warn("could not pause session: %v", err)
			}
			fmt.Printf("Paused. Resume with: intake -resume %s\n", sessionID)
			return 0
		case line == "/plan":
			return a.runPipeline(sessionID, false)
		}

		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.GatewayTimeout())
		result, err := orch.HandleTurn(ctx, sessionID, line)
		cancel()
		if err != nil {
			// The turn was not recorded; the user can retype it.
			a.logger.Error("turn failed: %v", err)
			fmt.Println("Something went wrong on our side - please try that again.")
			continue
		}

		fmt.Printf("\n%s\n\n", result.AssistantMessage)
		if result.ShouldGeneratePlan && a.confirm("Generate the plan now? [y/N] ", scanner) {
			return a.runPipeline(sessionID, false)
		}
	}
	return 0
}

// resumeSession reactivates a paused session and replays the last exchange
// for context.
func (a *app) resumeSession(orch *discovery.Orchestrator, sessionID string) int {
	sess, err := a.store.GetSession(context.Background(), sessionID)
	if err != nil {
		a.logger.Error("could not load session %s: %v", sessionID, err)
		return 1
	}
	if sess.Status == discovery.StatusPaused {
		if err := orch.Resume(context.Background(), sessionID); err != nil {
			a.logger.Error("could not resume session: %v", err)
			return 1
		}
	}

	turns, err := a.store.ListTurns(context.Background(), sessionID)
	if err != nil {
		a.logger.Error("could not load transcript: %v", err)
		return 1
	}
	fmt.Printf("Resuming session %s (turn %d)\n\n", sessionID, sess.TurnCount)
	if len(turns) > 0 {
		last := turns[len(turns)-1]
		if last.UserMessage != "" {
			fmt.Printf("You said: %s\n", last.UserMessage)
		}
		fmt.Printf("%s\n\n", last.AssistantMessage)
	}
	return 0
}

// runPipeline generates a plan for the session and prints the results.
func (a *app) runPipeline(sessionID string, regenerate bool) int {
	clients, err := a.stageClients()
	if err != nil {
		a.logger.Error("pipeline models unavailable: %v", err)
		return 1
	}
	pipeline := plan.NewPipeline(a.store, a.store, clients, a.cfg.Budgets)

	fmt.Println("Generating your plan, this can take a minute...")
	// Three sequential model calls, each individually time-bounded.
	ctx, cancel := context.WithTimeout(context.Background(), 3*a.cfg.GatewayTimeout())
	defer cancel()

	result, err := pipeline.Generate(ctx, sessionID, plan.Options{Regenerate: regenerate})
	if err != nil {
		var conflict *discovery.StateConflictError
		if errors.As(err, &conflict) {
			a.logger.Error("%v (use -regenerate for completed sessions)", conflict)
			return 1
		}
		if stage, ok := plan.FailedStage(err); ok {
			a.logger.Error("plan generation failed at the %s stage: %v", stage, err)
		} else {
			a.logger.Error("plan generation failed: %v", err)
		}
		return 1
	}

	a.printPlan(result)
	return 0
}

func (a *app) stageClients() (plan.StageClients, error) {
	extraction, err := a.clients.NewClient(a.cfg.Models.Extraction)
	if err != nil {
		return plan.StageClients{}, err
	}
	summary, err := a.clients.NewClient(a.cfg.Models.Summary)
	if err != nil {
		return plan.StageClients{}, err
	}
	technical, err := a.clients.NewClient(a.cfg.Models.Technical)
	if err != nil {
		return plan.StageClients{}, err
	}
	return plan.StageClients{Extraction: extraction, Summary: summary, Technical: technical}, nil
}

// printPlan renders the user summary as prose and the rest as JSON.
func (a *app) printPlan(p *plan.Plan) {
	fmt.Printf("\nPlan %s\n", p.ID)
	if s := p.UserSummary; s != nil {
		fmt.Printf("\n%s\n\n", s.ProjectOverview)
		for _, goal := range s.GoalsAndSuccess {
			fmt.Printf("  * %s\n", goal)
		}
		for _, feature := range s.HighLevelFeatures {
			fmt.Printf("  - %s\n", feature)
		}
		fmt.Printf("\n%s\n", s.NextStepsMessage)
	}
	if p.TechnicalPlan != nil {
		encoded, err := json.MarshalIndent(p.TechnicalPlan, "", "  ")
		if err != nil {
			a.logger.Warn("could not render technical plan: %v", err)
			return
		}
		fmt.Printf("\nTechnical plan:\n%s\n", encoded)
	}
}

func (a *app) confirm(prompt string, scanner *bufio.Scanner) bool {
	fmt.Print(prompt)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
