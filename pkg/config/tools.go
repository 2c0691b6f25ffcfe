package config

// ToolConfig describes one registered tool and the cues that select it.
type ToolConfig struct {
	Description string `yaml:"description"`
	// Patterns are literal phrases or templates with {slot} placeholders.
	Patterns []string `yaml:"patterns,omitempty"`
	// Keywords are word-bounded cues for the intent stage.
	Keywords []string `yaml:"keywords,omitempty"`
	// Phrases are regular expressions for looser intent cues.
	Phrases []string `yaml:"phrases,omitempty"`
	// Task is the llm_mapping key used when the tool generates output.
	Task string `yaml:"task,omitempty"`
	// Prompt is the instruction given to the reasoning engine on execution.
	Prompt string `yaml:"prompt,omitempty"`
}

// DefaultTools returns the built-in tool catalogue.
func DefaultTools() map[string]ToolConfig {
	return map[string]ToolConfig{
		"research-manager": {
			Description: "Performs deep research on technical topics and summarizes the findings",
			Patterns: []string{
				"research {topic}",
				"find information about {topic}",
				"look up {topic}",
				"investigate {topic}",
				"what are the latest {topic}",
			},
			Keywords: []string{"research", "investigate", "find out", "look into", "explore", "learn about", "compare"},
			Phrases: []string{
				`\bwhat (is|are)\b`,
				`\bhow does\b`,
				`\b(latest|current|recent) (trends|developments|advancements)\b`,
			},
			Task:   "research_query",
			Prompt: "Research the topic below in depth. Summarize the key findings, trade-offs and open questions.",
		},
		"prd-generator": {
			Description: "Generates a product requirements document from a product description",
			Patterns: []string{
				"create a prd for {product}",
				"generate a prd for {product}",
				"write a prd for {product}",
				"create a product requirements document for {product}",
				"write a product requirements document for {product}",
			},
			Keywords: []string{"prd", "product requirements", "requirements document", "product spec"},
			Phrases: []string{
				`\b(define|document|gather) (the )?requirements\b`,
			},
			Task:   "prd_generation",
			Prompt: "Write a product requirements document for the product below. Cover goals, users, features, non-functional requirements and success metrics.",
		},
		"user-stories-generator": {
			Description: "Creates user stories with acceptance criteria for a product or feature",
			Patterns: []string{
				"create user stories for {product}",
				"generate user stories for {product}",
				"write user stories for {product}",
			},
			Keywords: []string{"user stories", "user story", "acceptance criteria", "personas"},
			Phrases: []string{
				`\bas an? \w+,? i want\b`,
			},
			Task:   "user_stories_generation",
			Prompt: "Write user stories with acceptance criteria for the product below. Group them by epic.",
		},
		"task-list-generator": {
			Description: "Breaks user stories down into a structured development task list with dependencies",
			Patterns: []string{
				"create a task list for {product}",
				"generate a task list for {product}",
				"generate tasks for {product}",
				"break down {product} into tasks",
			},
			Keywords: []string{"task list", "tasks", "todo", "to-do", "milestones", "break down"},
			Phrases: []string{
				`\bsteps (to|for)\b`,
				`\bimplementation plan\b`,
			},
			Task:   "task_list_generation",
			Prompt: "Produce an ordered development task list for the work below. Note dependencies between tasks and rough effort.",
		},
		"rules-generator": {
			Description: "Generates coding rules and development guidelines for a codebase",
			Patterns: []string{
				"create rules for {product}",
				"generate rules for {product}",
				"generate coding rules for {product}",
				"write development guidelines for {product}",
			},
			Keywords: []string{"coding standards", "coding rules", "guidelines", "conventions", "best practices", "style guide", "linting"},
			Phrases: []string{
				`\brules for\b`,
			},
			Task:   "rules_generation",
			Prompt: "Write coding rules and development guidelines for the codebase below. Keep each rule short and actionable.",
		},
		"fullstack-starter-kit-generator": {
			Description: "Scaffolds a full-stack starter kit and recommends a tech stack for a new application",
			Patterns: []string{
				"create a starter kit for {use_case}",
				"generate a starter kit for {use_case}",
				"generate a fullstack starter kit for {use_case}",
				"scaffold {use_case}",
			},
			Keywords: []string{"starter kit", "boilerplate", "scaffold", "tech stack", "skeleton", "project template"},
			Phrases: []string{
				`\b(set ?up|bootstrap) (a |an |the )?new\b`,
			},
			Task:   "fullstack_starter_kit_generation",
			Prompt: "Design a full-stack starter kit for the use case below. Recommend a tech stack, a directory layout and the initial setup commands.",
		},
	}
}
