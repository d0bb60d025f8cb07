package fallback

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

const (
	recDelim = "##"
	tupDelim = "<||>"
	endDelim = "<|COMPLETE|>"
)

// basic safety limits against pathological model output
const (
	maxContentLen = 16 * 1024
	maxRecords    = 50
	maxTupleLen   = 1024
	maxErrSnippet = 120
	maxQuantity   = 100
)

var knownIntents = map[string]model.Intent{
	"ORDER":     model.IntentOrder,
	"REMOVE":    model.IntentRemove,
	"CONFIRM":   model.IntentConfirm,
	"CANCEL":    model.IntentCancel,
	"STATUS":    model.IntentStatus,
	"SHOW_MENU": model.IntentShowMenu,
	"GREETING":  model.IntentGreeting,
	"OFF_TOPIC": model.IntentOffTopic,
	"UNKNOWN":   "",
}

var knownActions = map[string]model.LineAction{
	"ADD":             model.LineAdd,
	"ADD_ITEM":        model.LineAdd,
	"REPLACE_ALL":     model.LineReplaceAll,
	"CHANGE_QUANTITY": model.LineChangeQuantity,
}

type rawTuple struct {
	Type  string
	Parts []string
}

func parseRawTuple(s string) (*rawTuple, error) {
	if s == "" {
		return nil, fmt.Errorf("empty tuple")
	}
	if len(s) > maxTupleLen {
		return nil, fmt.Errorf("tuple too large")
	}
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid tuple parens")
	}
	parts := strings.Split(s[1:len(s)-1], tupDelim)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid tuple parts")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return &rawTuple{Type: strings.ToLower(parts[0]), Parts: parts}, nil
}

func parseConfidence(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
		return 0, fmt.Errorf("confidence out of range")
	}
	return v, nil
}

// ParseFallbackResponse reads the tuple protocol. Records that are malformed or name
// items missing from menu are skipped and listed in ParsingErrors.
func ParseFallbackResponse(content string, menu model.Menu) (res *model.FallbackResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "fallback_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("fallback parser panic"), errx.KindFallbackError, http.StatusInternalServerError, errx.SystemErrorMessage)
			res = nil
		}
	}()

	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	if idx := strings.Index(content, endDelim); idx >= 0 {
		content = content[:idx]
	}

	res = &model.FallbackResult{}
	addErr := func(msg string) {
		res.ParsingErrors = append(res.ParsingErrors, msg)
	}
	ids := menu.ByID()
	seen := map[string]int{}
	intentSeen := false

	processed := 0
	for _, rec := range strings.Split(content, recDelim) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		if processed >= maxRecords {
			addErr("records capped")
			break
		}
		processed++

		rt, rerr := parseRawTuple(rec)
		if rerr != nil {
			addErr(fmt.Sprintf("bad_record: %s", safeSnippet(rec)))
			continue
		}

		switch rt.Type {
		case "intent":
			if len(rt.Parts) < 3 {
				addErr("intent: insufficient parts")
				continue
			}
			if intentSeen {
				addErr("intent: duplicate record")
				continue
			}
			intent, ok := knownIntents[strings.ToUpper(rt.Parts[1])]
			if !ok {
				addErr(fmt.Sprintf("intent: unknown name %s", safeSnippet(rt.Parts[1])))
				continue
			}
			conf, cerr := parseConfidence(rt.Parts[2])
			if cerr != nil {
				addErr("intent: invalid confidence")
				continue
			}
			intentSeen = true
			res.Intent = intent
			res.Confidence = conf
			if len(rt.Parts) > 3 && rt.Parts[3] != "" {
				action, ok := knownActions[strings.ToUpper(rt.Parts[3])]
				if !ok {
					addErr(fmt.Sprintf("intent: unknown action %s", safeSnippet(rt.Parts[3])))
					continue
				}
				res.Action = action
			}

		case "item":
			if len(rt.Parts) < 4 {
				addErr("item: insufficient parts")
				continue
			}
			id := rt.Parts[1]
			if !utf8.ValidString(id) || id == "" {
				addErr("item: invalid id")
				continue
			}
			if _, ok := ids[id]; !ok {
				addErr(fmt.Sprintf("item: unknown id %s", safeSnippet(id)))
				continue
			}
			qty, qerr := strconv.Atoi(rt.Parts[2])
			if qerr != nil || qty <= 0 || qty > maxQuantity {
				addErr("item: invalid quantity")
				continue
			}
			conf, cerr := parseConfidence(rt.Parts[3])
			if cerr != nil {
				addErr("item: invalid confidence")
				continue
			}
			if i, dup := seen[id]; dup {
				res.Items[i].Quantity += qty
				res.Items[i].Confidence = math.Min(res.Items[i].Confidence, conf)
				continue
			}
			seen[id] = len(res.Items)
			res.Items = append(res.Items, model.FallbackItem{ItemID: id, Quantity: qty, Confidence: conf})

		default:
			addErr("unknown tuple type")
		}
	}

	// items without an intent record still read as an order
	if !intentSeen && len(res.Items) > 0 {
		res.Intent = model.IntentOrder
		for _, it := range res.Items {
			res.Confidence = math.Max(res.Confidence, it.Confidence)
		}
	}
	return res, nil
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
