// Package e2e runs the feature files against a live server.
package e2e

import (
	"github.com/cucumber/godog"

	"travelcred/e2e/steps/common"
	"travelcred/e2e/steps/registry"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, w *common.World) {
	common.RegisterSteps(ctx, w)
	registry.RegisterSteps(ctx, w)
}
