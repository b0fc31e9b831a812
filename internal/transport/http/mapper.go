package http

import (
	"encoding/json"

	"github.com/vovakirdan/bitter-server/internal/core"
	"github.com/vovakirdan/bitter-server/internal/proto"
)

func badRequest(msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Message: msg}
}

// inboundToCommand decodes an envelope. A non-nil proto.Error is reported to
// the client and the connection stays open.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeRegister:
		var data proto.RegisterData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid register_for_realtime payload")
		}
		return &core.Command{
			Kind:      core.CommandRegister,
			Recipient: data.RecipientUsername,
		}, nil
	case proto.InboundTypeRequestHistory:
		var data proto.RequestHistoryData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid request_message_history payload")
		}
		return &core.Command{
			Kind:      core.CommandRequestHistory,
			Recipient: data.RecipientUsername,
			Cursor:    string(data.Cursor),
		}, nil
	case proto.InboundTypeSendMessage:
		var data proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badRequest("invalid send_message payload")
		}
		return &core.Command{
			Kind:      core.CommandSendMessage,
			Recipient: data.RecipientUsername,
			Body:      data.MessageBody,
		}, nil
	default:
		return nil, badRequest("unknown message type")
	}
}

func recordFromView(view core.MessageView) proto.MessageRecord {
	return proto.MessageRecord{
		MessageID:      view.ID,
		ConversationID: view.ConversationID,
		AuthorID:       view.AuthorID,
		Body:           view.Body,
		DateCreated:    view.CreatedAt.Unix(),
		Seen:           view.Seen,
		Origin:         string(view.Origin),
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventNewMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNewMessage,
			Data:  recordFromView(*event.Message),
		}
	case core.EventHistory:
		messages := make([]proto.MessageRecord, 0, len(event.History))
		for _, view := range event.History {
			messages = append(messages, recordFromView(view))
		}
		data := proto.HistoryData{
			RecipientUsername: event.Recipient,
			Messages:          messages,
		}
		if len(event.History) > 0 {
			oldest := event.History[0].ID
			data.NextCursor = &oldest
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventHistory,
			Data:  data,
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{
				Type:  proto.OutboundTypeError,
				Event: proto.EventErrorMessage,
				Error: &proto.Error{Code: core.ErrCodeInternal, Message: "internal server error"},
			}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Event: proto.EventErrorMessage,
			Error: &proto.Error{Code: event.Error.Code, Message: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
