package score

import (
	"fmt"
	"strings"

	"github.com/ppiankov/controlgap/internal/model"
)

// ControlState is everything the scorer knows about one control
type ControlState struct {
	Control  model.Control
	Latest   *model.AssessmentAnswer // nil when never assessed
	Settings []model.SettingResult
}

// Rule is an extra condition a control must satisfy to keep its points even
// when the assessment says it is implemented.
type Rule interface {
	Name() string
	Applies(control model.Control) bool
	// Evaluate returns false and an explanation when the condition is not met
	Evaluate(state ControlState) (bool, string)
}

// SettingsRule requires every listed configuration setting to be compliant
type SettingsRule struct {
	RuleName   string
	ControlID  string
	SettingIDs []string
	Reason     string
}

// Name returns the rule name
func (r *SettingsRule) Name() string {
	return r.RuleName
}

// Applies reports whether the rule targets the control
func (r *SettingsRule) Applies(control model.Control) bool {
	return control.ID == r.ControlID
}

// Evaluate checks the listed settings; a setting with no result fails
func (r *SettingsRule) Evaluate(state ControlState) (bool, string) {
	byID := make(map[string]model.SettingResult, len(state.Settings))
	for _, s := range state.Settings {
		byID[s.SettingID] = s
	}

	var failing []string
	for _, id := range r.SettingIDs {
		s, ok := byID[id]
		switch {
		case !ok:
			failing = append(failing, id+" (not mapped)")
		case !s.Compliant():
			status := string(s.Effective())
			if status == "" {
				status = "no result"
			}
			failing = append(failing, fmt.Sprintf("%s (%s)", id, status))
		}
	}
	if len(failing) == 0 {
		return true, ""
	}

	reason := r.Reason
	if reason == "" {
		reason = "required condition not met"
	}
	return false, fmt.Sprintf("%s: %s", reason, strings.Join(failing, ", "))
}

// RulesFromConfig builds rules from configuration
func RulesFromConfig(cfgs []model.SpecialRuleConfig) ([]Rule, error) {
	rules := make([]Rule, 0, len(cfgs))
	for _, c := range cfgs {
		switch strings.ToLower(c.Kind) {
		case "settings", "":
			if len(c.Settings) == 0 {
				return nil, model.InvalidInputf("special rule %q lists no settings", c.Name)
			}
			name := c.Name
			if name == "" {
				name = "settings:" + c.ControlID
			}
			rules = append(rules, &SettingsRule{
				RuleName:   name,
				ControlID:  c.ControlID,
				SettingIDs: c.Settings,
				Reason:     c.Reason,
			})
		default:
			return nil, model.InvalidInputf("special rule %q has unknown kind %q", c.Name, c.Kind)
		}
	}
	return rules, nil
}
