// Package approvals provides an embeddable approval-workflow engine.
//
// The engine admits approval workflows under a capacity gate, shapes them
// with a risk-derived policy, and drives them to a terminal status through
// decisions, timeouts and escalations. It comes with pluggable service
// layers such as:
//
//   - orchestrator – workflow lifecycle and decision processing
//   - risk         – risk scoring and approval policy synthesis
//   - decision     – decision quality and consistency gates
//   - escalation   – timeout warnings and leveled escalation paths
//   - notification – lifecycle event delivery (in-process or webhook)
//   - persistence  – workflow state storage over afs
//
// The engine is designed to be embedded in host applications. End-users
// typically interact with it via the high-level Service façade exposed by
// the root package:
//
//	srv, _ := approvals.New()
//	wf, _ := srv.Orchestrator().Submit(ctx, spec, "high")
//	_, _ = srv.Orchestrator().SubmitDecision(ctx, &orchestrator.DecisionRequest{
//		WorkflowID: wf.ID, StepID: wf.Steps[0].ID,
//		DeciderID: "alice", Type: "approve",
//		Justification: "verified rollback plan and staging results",
//	})
//
// For more details see the README and individual sub-packages.
package approvals
