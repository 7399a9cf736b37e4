package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/coderag/internal/llm"
	"github.com/Aman-CERP/coderag/internal/store"
)

const (
	defaultOlderThanDays = 30
	defaultMinGroupSize  = 5
	fetchLimit           = 1000
	deleteBatchSize      = 100
	fallbackGeneralProj  = "general"
	maxFallbackSessions  = 10
	maxFallbackFiles     = 30
	maxFilesModifiedCap  = 100
	summariseTemperature = 0.3
	summariseMaxTokens   = 2048

	compactionSystemPrompt = "You produce a concise but comprehensive technical summary of a group " +
		"of prior coding-agent sessions on the same project. Preserve all decisions and file " +
		"references. Group related sessions thematically rather than narrating them in order."
)

// CompactOptions configures one compaction run (§4.7 offline compactor).
type CompactOptions struct {
	OlderThanDays int
	MinGroupSize  int
	DryRun        bool
}

func (o CompactOptions) normalize() CompactOptions {
	if o.OlderThanDays <= 0 {
		o.OlderThanDays = defaultOlderThanDays
	}
	if o.MinGroupSize <= 0 {
		o.MinGroupSize = defaultMinGroupSize
	}
	return o
}

// ProjectDetail reports what happened to one project's group (§4.7 step 5).
type ProjectDetail struct {
	MemoriesFound int
	Compacted     bool
	Reason        string
}

// Report is the C7 compactor output (§4.7 step 5).
type Report struct {
	MemoriesFetched   int
	ProjectsProcessed int
	GroupsCompacted   int
	MemoriesDeleted   int
	MemoriesCreated   int
	Errors            []string
	ProjectDetails    map[string]ProjectDetail
}

// Compactor runs the offline memory-compaction job. It is not tied to the
// daemon lifecycle: it may be invoked manually (e.g. from a CLI command)
// or on a schedule by whatever process embeds it.
type Compactor struct {
	Adapter store.Adapter
	LLM     llm.Client
	Model   string
}

// Run executes one compaction pass (§4.7 offline compactor). It is not
// atomic across the insert/delete pair for a given project: if delete
// fails after insert, both the compacted and source memories remain, which
// is surfaced via Report.Errors rather than rolled back.
func (c *Compactor) Run(ctx context.Context, opts CompactOptions) (Report, error) {
	opts = opts.normalize()
	report := Report{ProjectDetails: make(map[string]ProjectDetail)}

	cutoff := time.Now().UTC().AddDate(0, 0, -opts.OlderThanDays)
	docs, err := c.Adapter.FilterFetch(ctx, store.CollectionConversationMemory,
		&store.Filter{Logic: store.FilterLogicAnd, Clauses: []store.Clause{
			{Property: store.PropTimestamp, Op: store.FilterOpLessThan, Value: cutoff},
		}}, fetchLimit, nil)
	if err != nil {
		return report, fmt.Errorf("memory: fetch aged memories: %w", err)
	}
	report.MemoriesFetched = len(docs)

	groups := groupByProject(docs)

	for project, group := range groups {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", project, ctx.Err()))
			break
		}

		report.ProjectsProcessed++

		if len(group) < opts.MinGroupSize {
			report.ProjectDetails[project] = ProjectDetail{
				MemoriesFound: len(group),
				Compacted:     false,
				Reason:        fmt.Sprintf("group size %d below minimum %d", len(group), opts.MinGroupSize),
			}
			continue
		}

		detail, err := c.compactProject(ctx, project, group, opts, &report)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", project, err))
		}
		report.ProjectDetails[project] = detail
	}

	return report, nil
}

func groupByProject(docs []store.Doc) map[string][]store.ConversationMemory {
	groups := make(map[string][]store.ConversationMemory)
	for _, d := range docs {
		m := store.MemoryFromProperties(d.ID, d.Properties)
		project := m.Project
		if project == "" {
			project = fallbackGeneralProj
		}
		groups[project] = append(groups[project], m)
	}
	return groups
}

func (c *Compactor) compactProject(ctx context.Context, project string, memories []store.ConversationMemory, opts CompactOptions, report *Report) (ProjectDetail, error) {
	sort.Slice(memories, func(i, j int) bool { return memories[i].Timestamp.Before(memories[j].Timestamp) })

	preserved := collectPreservedInfo(memories)

	detail := ProjectDetail{MemoriesFound: len(memories)}

	if opts.DryRun {
		detail.Compacted = true
		detail.Reason = "dry run: no writes performed"
		report.GroupsCompacted++
		report.MemoriesCreated++
		report.MemoriesDeleted += len(memories)
		return detail, nil
	}

	summary := c.summarise(ctx, project, memories, preserved)

	startDate := memories[0].Timestamp.Format("2006-01-02")
	endDate := memories[len(memories)-1].Timestamp.Format("2006-01-02")

	filesModified := preserved.filesModified
	if len(filesModified) > maxFilesModifiedCap {
		filesModified = filesModified[:maxFilesModifiedCap]
	}

	compacted := store.ConversationMemory{
		SessionID:     fmt.Sprintf("compacted-%s-%s-%s", project, startDate, endDate),
		Summary:       summary,
		Decisions:     preserved.decisions,
		FilesModified: filesModified,
		Project:       project,
		Topics:        preserved.topics,
		Timestamp:     time.Now().UTC(),
		AgentType:     "memory-compaction",
		Model:         c.Model,
		TaskType:      "compaction",
		Cost:          preserved.cost,
		InputTokens:   preserved.inputTokens,
		OutputTokens:  preserved.outputTokens,
	}

	if _, err := Write(ctx, c.Adapter, compacted); err != nil {
		detail.Reason = fmt.Sprintf("insert failed: %s", err)
		return detail, err
	}
	report.MemoriesCreated++
	report.GroupsCompacted++
	detail.Compacted = true

	ids := make([]string, 0, len(memories))
	for _, m := range memories {
		ids = append(ids, m.ID)
	}
	deleted, deleteErrs := deleteBatched(ctx, c.Adapter, ids)
	report.MemoriesDeleted += deleted
	for _, e := range deleteErrs {
		report.Errors = append(report.Errors, fmt.Sprintf("%s: delete source memory: %s", project, e))
	}

	return detail, nil
}

func deleteBatched(ctx context.Context, adapter store.Adapter, ids []string) (int, []error) {
	deleted := 0
	var errs []error
	for i := 0; i < len(ids); i += deleteBatchSize {
		end := i + deleteBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[i:end] {
			if err := adapter.DeleteById(ctx, store.CollectionConversationMemory, id); err != nil {
				errs = append(errs, err)
				continue
			}
			deleted++
		}
	}
	return deleted, errs
}

type preservedInfo struct {
	decisions     []string
	filesModified []string
	topics        []string
	cost          float64
	inputTokens   int64
	outputTokens  int64
	models        []string
	agentTypes    []string
	taskTypes     []string
}

// collectPreservedInfo unions decisions/filesModified/topics (deduped,
// insertion order preserved), sums cost/tokens, and dedupes the observed
// model/agentType/taskType sets (§4.7 step 3a).
func collectPreservedInfo(memories []store.ConversationMemory) preservedInfo {
	var p preservedInfo
	decisionSeen := map[string]struct{}{}
	fileSeen := map[string]struct{}{}
	topicSeen := map[string]struct{}{}
	modelSeen := map[string]struct{}{}
	agentSeen := map[string]struct{}{}
	taskSeen := map[string]struct{}{}

	for _, m := range memories {
		for _, d := range m.Decisions {
			if _, ok := decisionSeen[d]; !ok {
				decisionSeen[d] = struct{}{}
				p.decisions = append(p.decisions, d)
			}
		}
		for _, f := range m.FilesModified {
			if _, ok := fileSeen[f]; !ok {
				fileSeen[f] = struct{}{}
				p.filesModified = append(p.filesModified, f)
			}
		}
		for _, t := range m.Topics {
			if _, ok := topicSeen[t]; !ok {
				topicSeen[t] = struct{}{}
				p.topics = append(p.topics, t)
			}
		}
		if m.Model != "" {
			if _, ok := modelSeen[m.Model]; !ok {
				modelSeen[m.Model] = struct{}{}
				p.models = append(p.models, m.Model)
			}
		}
		if m.AgentType != "" {
			if _, ok := agentSeen[m.AgentType]; !ok {
				agentSeen[m.AgentType] = struct{}{}
				p.agentTypes = append(p.agentTypes, m.AgentType)
			}
		}
		if m.TaskType != "" {
			if _, ok := taskSeen[m.TaskType]; !ok {
				taskSeen[m.TaskType] = struct{}{}
				p.taskTypes = append(p.taskTypes, m.TaskType)
			}
		}
		p.cost += m.Cost
		p.inputTokens += m.InputTokens
		p.outputTokens += m.OutputTokens
	}
	return p
}

func (c *Compactor) summarise(ctx context.Context, project string, memories []store.ConversationMemory, preserved preservedInfo) string {
	if c.LLM == nil {
		return fallbackSummary(project, memories, preserved)
	}

	user := buildSummaryPrompt(memories, preserved)
	text, err := c.LLM.Complete(ctx, llm.CompletionRequest{
		Model:       c.Model,
		System:      compactionSystemPrompt,
		User:        user,
		Temperature: summariseTemperature,
		MaxTokens:   summariseMaxTokens,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		return fallbackSummary(project, memories, preserved)
	}
	return text
}

func buildSummaryPrompt(memories []store.ConversationMemory, preserved preservedInfo) string {
	var b strings.Builder
	for i, m := range memories {
		fmt.Fprintf(&b, "--- Session %d (%s) ---\n", i+1, m.Timestamp.Format("2006-01-02"))
		fmt.Fprintf(&b, "summary: %s\n", m.Summary)
		fmt.Fprintf(&b, "decisions: %s\n", strings.Join(m.Decisions, "; "))
		fmt.Fprintf(&b, "files: %s\n\n", strings.Join(m.FilesModified, ", "))
	}
	fmt.Fprintf(&b, "--- Preserved info manifest ---\n")
	fmt.Fprintf(&b, "decisions: %s\n", strings.Join(preserved.decisions, "; "))
	fmt.Fprintf(&b, "files: %s\n", strings.Join(preserved.filesModified, ", "))
	fmt.Fprintf(&b, "topics: %s\n", strings.Join(preserved.topics, ", "))
	fmt.Fprintf(&b, "models: %s, agentTypes: %s, taskTypes: %s\n",
		strings.Join(preserved.models, ", "), strings.Join(preserved.agentTypes, ", "), strings.Join(preserved.taskTypes, ", "))
	return b.String()
}

// fallbackSummary is the deterministic summary emitted when the LLM pass
// fails or is unconfigured (§4.7 step 3c).
func fallbackSummary(project string, memories []store.ConversationMemory, preserved preservedInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compacted %d sessions for project %q (%s to %s).\n\n",
		len(memories),
		project,
		memories[0].Timestamp.Format("2006-01-02"),
		memories[len(memories)-1].Timestamp.Format("2006-01-02"),
	)

	n := len(memories)
	if n > maxFallbackSessions {
		n = maxFallbackSessions
	}
	for _, m := range memories[:n] {
		fmt.Fprintf(&b, "- %s: %s\n", m.Timestamp.Format("2006-01-02"), m.Summary)
	}

	fmt.Fprintf(&b, "\nDecisions:\n")
	for _, d := range preserved.decisions {
		fmt.Fprintf(&b, "- %s\n", d)
	}

	files := preserved.filesModified
	if len(files) > maxFallbackFiles {
		files = files[:maxFallbackFiles]
	}
	fmt.Fprintf(&b, "\nFiles:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	return b.String()
}
