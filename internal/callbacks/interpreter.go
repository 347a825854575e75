package callbacks

import (
	"encoding/json"
	"log/slog"
)

// Envelope mirrors the nested JSON the gateway posts to the webhook.
type Envelope struct {
	Body struct {
		StkCallback *StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// StkCallback is the result container for a single push attempt.
type StkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

// MetadataItem is one name/value pair of the success metadata list.
type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value"`
}

// Ack is the synchronous acknowledgement returned to the gateway. It reports
// receipt of the callback, not the payment outcome; a non-zero ResultCode is
// reserved for payloads this service could not parse. Acknowledging
// incorrectly can cause the gateway to retry the webhook indefinitely.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// TransactionOutcome is the interpreted payment result handed downstream.
type TransactionOutcome struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Succeeded         bool
	Fields            map[string]any
}

// Interpreter turns raw gateway callbacks into transaction outcomes.
type Interpreter struct {
	logger *slog.Logger
}

// NewInterpreter constructs a callback interpreter.
func NewInterpreter(logger *slog.Logger) *Interpreter {
	return &Interpreter{logger: logger}
}

// Interpret parses the callback envelope. The returned Ack always goes back
// to the gateway; the outcome is nil when the payload is malformed.
func (i *Interpreter) Interpret(envelope Envelope) (Ack, *TransactionOutcome) {
	stk := envelope.Body.StkCallback
	if stk == nil {
		i.logger.Warn("callback missing stkCallback container")
		return Ack{ResultCode: 1, ResultDesc: "Invalid callback data"}, nil
	}

	outcome := &TransactionOutcome{
		CheckoutRequestID: stk.CheckoutRequestID,
		ResultCode:        stk.ResultCode,
		ResultDesc:        stk.ResultDesc,
	}

	if stk.ResultCode == 0 {
		outcome.Succeeded = true
		outcome.Fields = flattenMetadata(stk)
		i.logger.Info("payment successful",
			slog.String("checkout_request_id", stk.CheckoutRequestID),
			slog.Any("fields", outcome.Fields),
		)
	} else {
		if outcome.ResultDesc == "" {
			outcome.ResultDesc = "Payment failed"
		}
		i.logger.Info("payment failed",
			slog.String("checkout_request_id", stk.CheckoutRequestID),
			slog.Int("result_code", stk.ResultCode),
			slog.String("result_desc", outcome.ResultDesc),
		)
	}

	return Ack{ResultCode: 0, ResultDesc: "Success"}, outcome
}

func flattenMetadata(stk *StkCallback) map[string]any {
	fields := map[string]any{}
	if stk.CallbackMetadata == nil {
		return fields
	}
	for _, item := range stk.CallbackMetadata.Item {
		var value any
		if err := json.Unmarshal(item.Value, &value); err != nil {
			continue
		}
		fields[item.Name] = value
	}
	return fields
}
