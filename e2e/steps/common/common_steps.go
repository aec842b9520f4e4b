package common

import (
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// RegisterSteps registers the generic reachability and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, w *World) {
	ctx.Step(`^the registry is reachable$`, w.registryIsReachable)
	ctx.Step(`^the response status should be (\d+)$`, w.responseStatusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, w.errorCodeShouldBe)
	ctx.Step(`^an anonymous client lists passports$`, func() error {
		return w.Do(http.MethodGet, "/v1/passports", "", nil)
	})
}

func (w *World) registryIsReachable() error {
	if err := w.Do(http.MethodGet, "/healthz", "", nil); err != nil {
		return err
	}
	if w.LastStatus != http.StatusOK {
		return fmt.Errorf("healthz returned %d: %s", w.LastStatus, w.LastBody)
	}
	return nil
}

func (w *World) responseStatusShouldBe(expected int) error {
	if w.LastStatus != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, w.LastStatus, w.LastBody)
	}
	return nil
}

func (w *World) errorCodeShouldBe(expected string) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := w.Decode(&body); err != nil {
		return err
	}
	if body.Error != expected {
		return fmt.Errorf("expected error %q, got %q", expected, body.Error)
	}
	return nil
}
