package exchange

import (
	"encoding/json"
	"strings"

	"github.com/perpdesk/go-perpdesk/types"
)

// OutcomeStatus is the terminal classification of one submission step.
type OutcomeStatus string

const (
	// OutcomeSuccess: every order in the step was accepted.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeRejected: the exchange understood the payload and said no,
	// to the whole step or to individual orders. Safe to retry after
	// fixing the cause; nothing ambiguous happened.
	OutcomeRejected OutcomeStatus = "rejected"
	// OutcomeTransportError: the exchange's verdict never arrived or could
	// not be read. The step may or may not have executed; blind retries
	// risk a double fill.
	OutcomeTransportError OutcomeStatus = "transport_error"
)

// RestingStatus is an accepted order sitting on the book.
type RestingStatus struct {
	Oid   int64        `json:"oid"`
	Cloid *types.Cloid `json:"cloid,omitempty"`
}

// FilledStatus is an order that executed immediately.
type FilledStatus struct {
	Oid     int64        `json:"oid"`
	TotalSz string       `json:"totalSz"`
	AvgPx   string       `json:"avgPx"`
	Cloid   *types.Cloid `json:"cloid,omitempty"`
}

// OrderStatus is the per-order verdict inside a bulk response. At most one
// field is set; all nil means the exchange reported a bare marker (cancels
// respond with the string "success") and there is nothing further to read.
type OrderStatus struct {
	Resting *RestingStatus `json:"resting,omitempty"`
	Filled  *FilledStatus  `json:"filled,omitempty"`
	Error   *string        `json:"error,omitempty"`
}

// Outcome is what one submission step came to.
type Outcome struct {
	Status OutcomeStatus

	// Reason carries the exchange's message for whole-step rejections and
	// the transport failure text for unknown outcomes.
	Reason string

	// PerActionError maps the index of each rejected order within the step
	// to its rejection message. Populated only for partial rejections.
	PerActionError map[int]string

	// Statuses holds the per-order verdicts, index-aligned with the orders
	// of the step, when the exchange returned them.
	Statuses []OrderStatus
}

// The gateway answers in several shapes behind one endpoint:
//
//	{"status":"err","response":"<message>"}
//	{"status":"ok","response":{"type":"order","data":{"statuses":[...]}}}
//	{"status":"ok","response":{"type":"default"}}
//
// and statuses entries are themselves a union: {"resting":{...}},
// {"filled":{...}}, {"error":"..."} or the bare string "success". The
// envelope is decoded in stages so each stage only commits to the part of
// the shape it actually needs.
type rawEnvelope struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type rawResult struct {
	Type string `json:"type"`
	Data struct {
		Statuses []json.RawMessage `json:"statuses"`
	} `json:"data"`
}

// Classify reads a gateway response body and produces the step's outcome.
// Unreadable bodies are transport errors: when the verdict cannot be
// parsed, the pipeline must not pretend it knows what happened.
func Classify(body []byte) Outcome {
	var envelope rawEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Status == "" {
		return Outcome{
			Status: OutcomeTransportError,
			Reason: "unparseable response body",
		}
	}

	switch envelope.Status {
	case "ok":
	case "err":
		var msg string
		if err := json.Unmarshal(envelope.Response, &msg); err != nil {
			msg = string(envelope.Response)
		}
		return Outcome{Status: OutcomeRejected, Reason: msg}
	default:
		return Outcome{
			Status: OutcomeTransportError,
			Reason: "unrecognized response status " + envelope.Status,
		}
	}

	var result rawResult
	if len(envelope.Response) > 0 {
		if err := json.Unmarshal(envelope.Response, &result); err != nil {
			return Outcome{
				Status: OutcomeTransportError,
				Reason: "unparseable response payload",
			}
		}
	}

	out := Outcome{Status: OutcomeSuccess}
	for i, raw := range result.Data.Statuses {
		status, ok := decodeOrderStatus(raw)
		if !ok {
			return Outcome{
				Status: OutcomeTransportError,
				Reason: "unparseable order status",
			}
		}
		out.Statuses = append(out.Statuses, status)

		if status.Error != nil {
			if out.PerActionError == nil {
				out.PerActionError = make(map[int]string)
			}
			out.PerActionError[i] = *status.Error
		}
	}

	if len(out.PerActionError) > 0 {
		out.Status = OutcomeRejected
		out.Reason = "rejected orders within the step"
	}

	return out
}

func decodeOrderStatus(raw json.RawMessage) (OrderStatus, bool) {
	// bare marker, e.g. "success" from a cancel
	var marker string
	if err := json.Unmarshal(raw, &marker); err == nil {
		var status OrderStatus
		if !strings.EqualFold(marker, "success") {
			status.Error = &marker
		}
		return status, true
	}

	var status OrderStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return OrderStatus{}, false
	}
	return status, true
}

// staleSessionReason reports whether a rejection message means the agent
// key itself is no longer valid, as opposed to a problem with the order.
// The gateway words it as the agent/wallet "does not exist".
func staleSessionReason(reason string) bool {
	return strings.Contains(strings.ToLower(reason), "does not exist")
}
