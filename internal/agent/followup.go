package agent

import (
	"fmt"
	"strings"
	"unicode"

	"wardan/internal/types"
)

const confirmationMarker = "with confirmation"

// FollowUp is the utterance dispatched after a resolution together with the
// structured intent the backend can use instead of re-parsing the text.
type FollowUp struct {
	Utterance string
	Intent    types.Intent
}

type target struct {
	verb   string
	entity string
	name   string
}

// parseTarget reads "<verb> [entity] <name>" from an utterance. ok is false
// when no name follows the verb or the target is already an id reference.
func parseTarget(utterance, entity string) (target, bool) {
	tokens := strings.Fields(stripMarker(utterance))
	if len(tokens) == 0 || !isWord(tokens[0]) {
		return target{}, false
	}
	t := target{verb: strings.ToLower(tokens[0])}
	rest := tokens[1:]
	if len(rest) > 0 && isEntityWord(rest[0], entity) {
		t.entity = entity
		rest = rest[1:]
	}
	if len(rest) == 0 || strings.EqualFold(rest[0], "id") {
		return t, false
	}
	t.name = strings.Join(rest, " ")
	return t, true
}

func confirmVerbEntity(action PendingAction, req ConfirmationRequest, defaultEntity string) (string, string) {
	entity := firstNonEmpty(strings.ToLower(req.Entity), defaultEntity)
	parsed, _ := parseTarget(action.OriginalUtterance, entity)
	return firstNonEmpty(req.Verb, parsed.verb, "delete"), entity
}

// confirmFollowUp prefers the payload's identifier, then the name parsed
// from the original utterance, then the original with the marker appended.
func confirmFollowUp(action PendingAction, req ConfirmationRequest, defaultEntity string) (FollowUp, bool) {
	original := strings.TrimSpace(action.OriginalUtterance)
	verb, entity := confirmVerbEntity(action, req, defaultEntity)
	intent := types.Intent{
		Kind:              types.IntentConfirmation,
		OriginalUtterance: original,
		ResolvedID:        req.TargetID,
		Confirmed:         true,
	}
	parsed, named := parseTarget(original, entity)
	var utterance string
	switch {
	case req.TargetID != "":
		utterance = fmt.Sprintf("%s %s ID %s %s", verb, entity, req.TargetID, confirmationMarker)
	case named:
		utterance = fmt.Sprintf("%s %s %s %s", verb, entity, parsed.name, confirmationMarker)
	case original != "":
		utterance = stripMarker(original) + " " + confirmationMarker
	default:
		return FollowUp{}, false
	}
	return FollowUp{Utterance: utterance, Intent: intent}, true
}

// selectFollowUp replaces the run of original tokens that name the
// candidates, plus a leading entity word, with an id reference.
func selectFollowUp(action PendingAction, choice Choice, entity string) FollowUp {
	original := strings.TrimSpace(action.OriginalUtterance)
	ref := fmt.Sprintf("%s ID %s", entity, choice.ID)
	follow := FollowUp{Intent: types.Intent{
		Kind:              types.IntentDisambiguation,
		OriginalUtterance: original,
		ResolvedID:        choice.ID,
	}}
	if original == "" {
		follow.Utterance = ref
		return follow
	}

	tokens := strings.Fields(original)
	start, end := longestNameRun(tokens, nameTokens(action.Payload.Choices))
	if start < 0 {
		follow.Utterance = original + " for " + ref
		return follow
	}
	if start > 0 && isEntityWord(tokens[start-1], entity) {
		start--
	}
	out := make([]string, 0, len(tokens))
	out = append(out, tokens[:start]...)
	out = append(out, ref)
	out = append(out, tokens[end:]...)
	follow.Utterance = strings.Join(out, " ")
	return follow
}

func nameTokens(choices []Choice) map[string]struct{} {
	set := map[string]struct{}{}
	for _, choice := range choices {
		for _, tok := range strings.Fields(choice.Name) {
			if norm := normalizeToken(tok); norm != "" {
				set[norm] = struct{}{}
			}
		}
	}
	return set
}

// longestNameRun returns the half-open token range of the longest run whose
// tokens all appear in names, or -1 when none does.
func longestNameRun(tokens []string, names map[string]struct{}) (int, int) {
	bestStart, bestEnd := -1, -1
	for i := 0; i < len(tokens); i++ {
		j := i
		for j < len(tokens) {
			if _, ok := names[normalizeToken(tokens[j])]; !ok {
				break
			}
			j++
		}
		if j > i && j-i > bestEnd-bestStart {
			bestStart, bestEnd = i, j
		}
	}
	return bestStart, bestEnd
}

func normalizeToken(tok string) string {
	return strings.ToLower(strings.TrimFunc(tok, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}

func isEntityWord(tok, entity string) bool {
	tok = normalizeToken(tok)
	return entity != "" && (tok == entity || tok == entity+"s")
}

func isWord(tok string) bool {
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return tok != ""
}

func stripMarker(utterance string) string {
	trimmed := strings.TrimSpace(utterance)
	lower := strings.ToLower(trimmed)
	if strings.HasSuffix(lower, confirmationMarker) {
		return strings.TrimSpace(trimmed[:len(trimmed)-len(confirmationMarker)])
	}
	return trimmed
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
