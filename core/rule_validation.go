package core

import (
	"fmt"
	"sort"
	"strings"
)

type RuleIssueSeverity string

const (
	RuleIssueError   RuleIssueSeverity = "error"
	RuleIssueWarning RuleIssueSeverity = "warning"
)

type RuleIssue struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Severity   RuleIssueSeverity `json:"severity"`
	Direction  Direction         `json:"direction,omitempty"`
	SourcePath string            `json:"source_path,omitempty"`
	TargetPath string            `json:"target_path,omitempty"`
}

// ValidateRules checks a candidate rule version before it is published:
// rule shape, entity consistency, transform ids and the uniqueness of
// (source, target) per direction. Overlapping targets are only warned about.
func ValidateRules(entity EntityType, rules []MappingRule) []RuleIssue {
	var issues []RuleIssue
	if err := entity.Validate(); err != nil {
		issues = append(issues, ruleIssue("invalid_entity", err.Error(), MappingRule{}, RuleIssueError))
	}
	if len(rules) == 0 {
		issues = append(issues, ruleIssue("rules_empty", "core: rule version has no rules", MappingRule{}, RuleIssueError))
	}

	seenPairs := make(map[string]struct{}, len(rules))
	targetsByDirection := make(map[Direction][]string)
	for _, rule := range rules {
		rule = normalizeMappingRule(rule)
		if rule.Entity == "" {
			rule.Entity = entity
		}
		if rule.Version == 0 {
			rule.Version = 1
		}
		if err := rule.Validate(); err != nil {
			issues = append(issues, ruleIssue("invalid_rule", err.Error(), rule, RuleIssueError))
		}
		if rule.Entity != entity {
			issues = append(issues, ruleIssue(
				"entity_mismatch",
				fmt.Sprintf("core: rule entity %q differs from version entity %q", rule.Entity, entity),
				rule,
				RuleIssueError,
			))
		}
		if rule.Transform != "" {
			if _, ok := LookupTransform(rule.Transform); !ok {
				issues = append(issues, ruleIssue(
					"transform_unknown",
					fmt.Sprintf("core: unknown transform %q", rule.Transform),
					rule,
					RuleIssueError,
				))
			}
		}

		key := string(rule.Direction) + "\x00" + strings.Join(SplitPath(rule.SourcePath), ".") +
			"\x00" + strings.Join(SplitPath(rule.TargetPath), ".")
		if _, duplicate := seenPairs[key]; duplicate {
			issues = append(issues, ruleIssue(
				"pair_duplicate",
				fmt.Sprintf("core: duplicate rule %s for direction %s", rule.Pair(), rule.Direction),
				rule,
				RuleIssueError,
			))
			continue
		}
		seenPairs[key] = struct{}{}
		targetsByDirection[rule.Direction] = append(targetsByDirection[rule.Direction], strings.Join(SplitPath(rule.TargetPath), "."))
	}

	for direction, targets := range targetsByDirection {
		sort.Strings(targets)
		for _, outer := range targets {
			for _, inner := range targets {
				if outer == "" || !strings.HasPrefix(inner, outer+".") {
					continue
				}
				issues = append(issues, ruleIssue(
					"target_overlap",
					fmt.Sprintf("core: target %q is nested under target %q", inner, outer),
					MappingRule{Direction: direction, TargetPath: inner},
					RuleIssueWarning,
				))
			}
		}
	}

	sortRuleIssues(issues)
	return issues
}

// RuleIssuesError folds error-severity issues into one error, nil when the
// rules can be published.
func RuleIssuesError(issues []RuleIssue) error {
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		if issue.Severity != RuleIssueError {
			continue
		}
		messages = append(messages, issue.Message)
	}
	if len(messages) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidRule, strings.Join(messages, "; "))
}

func sortRuleIssues(issues []RuleIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		left := issues[i]
		right := issues[j]
		if left.Severity != right.Severity {
			return left.Severity < right.Severity
		}
		if left.Code != right.Code {
			return left.Code < right.Code
		}
		if left.Direction != right.Direction {
			return left.Direction < right.Direction
		}
		if left.SourcePath != right.SourcePath {
			return left.SourcePath < right.SourcePath
		}
		if left.TargetPath != right.TargetPath {
			return left.TargetPath < right.TargetPath
		}
		return left.Message < right.Message
	})
}

func ruleIssue(code string, message string, rule MappingRule, severity RuleIssueSeverity) RuleIssue {
	return RuleIssue{
		Code:       strings.TrimSpace(strings.ToLower(code)),
		Message:    strings.TrimSpace(message),
		Severity:   severity,
		Direction:  rule.Direction,
		SourcePath: strings.TrimSpace(rule.SourcePath),
		TargetPath: strings.TrimSpace(rule.TargetPath),
	}
}
