// Package headless runs scripted Beacon jobs without a terminal UI.
//
// A job is a YAML file naming a page and a list of steps. Each step is either
// a pipeline command (summarize, guide, navigate, clear) or a session action
// (open, toggle, wait). The executor runs the steps in order against a
// running assistant, checks each outcome against the step's expectations and
// writes a report. It is meant for accessibility smoke tests in CI: a page
// change that stops the narrator from finding the sign-in button shows up as
// a failed expectation.
//
//	┌─────────────────────────────────────────────┐
//	│              Headless Executor              │
//	│  - Steps and expectations                   │
//	│  - Token budget and url constraints         │
//	│  - Artifact generation                      │
//	└──────────────┬─────────────────┬────────────┘
//	               │ Run             │ Open / Toggle
//	               ▼                 ▼
//	        ┌──────────────┐  ┌──────────────┐
//	        │ Orchestrator │  │  Assistant   │
//	        └──────────────┘  └──────────────┘
//
// Example job:
//
//	name: sign-in smoke
//	url: https://shop.example.com/
//	steps:
//	  - command: summarize
//	    expect:
//	      reply: "*shop*"
//	  - command: navigate
//	    query: where do I sign in?
//	    expect:
//	      selector: "#signin*"
//	      highlighted: true
//	constraints:
//	  max_tokens: 20000
//	  allowed_urls: ["https://shop.example.com/*"]
//
// Example usage:
//
//	cfg, _ := headless.LoadConfig("smoke.yaml")
//	exec, _ := headless.NewExecutor(cfg)
//	a, _ := assistant.Start(ctx, assistant.Options{OnEvent: exec.Handle})
//	defer a.Close(ctx)
//	err := exec.Run(ctx, a.Orchestrator(), a)
//
// Constraints:
//
// The constraint manager stops a job when model usage passes max_tokens or
// the job timeout expires, and refuses to open pages outside allowed_urls or
// inside denied_urls. Remaining steps are reported as skipped.
//
// Artifacts:
//
// The artifact writer generates execution reports:
// - execution.json: Full execution summary
// - summary.md: Human-readable markdown summary
// - metrics.json: Execution metrics
// - step-NN-snapshot.json: The page model each step read (optional)
package headless
