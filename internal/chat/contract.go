package chat

import "github.com/harunnryd/sabaki/internal/model/contract"

// ToContract converts transcript messages into model conversation turns.
// Error messages are left out; execution and confirmation messages are
// replayed as assistant turns.
func ToContract(history []Message) []contract.Message {
	out := make([]contract.Message, 0, len(history))
	for _, m := range history {
		switch m.Type {
		case TypeUser:
			out = append(out, contract.Message{Role: contract.RoleUser, Content: m.Content})
		case TypeAssistant, TypeExecution, TypeConfirmation:
			out = append(out, contract.Message{Role: contract.RoleAssistant, Content: m.Content})
		}
	}
	return out
}
