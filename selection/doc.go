// Package selection decides which agents work on a task.
//
// Three strategies are supported. Database mode filters the registry by a
// capability. LLM mode shows the backend the eligible agent profiles and keeps
// the agents it names that really exist. Hybrid mode classifies the task
// first and only pays for the LLM call on tasks above the configured
// complexity threshold.
//
// The LLM path is fail-soft: call errors, unparseable replies and replies
// naming no eligible agent fall back to the capability filter, then to a
// keyword match over agent types. The Planner builds orchestration plans and
// conflict resolutions the same way, with FallbackPlan as the deterministic
// alternative.
package selection
