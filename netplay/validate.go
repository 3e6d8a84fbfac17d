package netplay

import "fmt"

// Validate implements the spec §6.1 "packet failing required-field
// validation" check: it confirms the payload pointer matching Kind is
// present and non-empty where emptiness would be meaningless on the wire.
func (m *Message) Validate() error {
	switch m.Kind {
	case KindServerConf:
		if m.ServerConf == nil {
			return fmt.Errorf("%w: ServerConf", ErrMissingField)
		}
	case KindServerState:
		if m.ServerState == nil {
			return fmt.Errorf("%w: ServerState", ErrMissingField)
		}
	case KindPlayerConf:
		if m.PlayerConf == nil {
			return fmt.Errorf("%w: PlayerConf", ErrMissingField)
		}
	case KindPlayerState:
		if m.PlayerState == nil {
			return fmt.Errorf("%w: PlayerState", ErrMissingField)
		}
	case KindPlayerField:
		if m.PlayerField == nil {
			return fmt.Errorf("%w: PlayerField", ErrMissingField)
		}
		if len(m.PlayerField.Grid) == 0 {
			return fmt.Errorf("%w: PlayerField.Grid", ErrMissingField)
		}
	case KindInput:
		if m.Input == nil {
			return fmt.Errorf("%w: Input", ErrMissingField)
		}
		if len(m.Input.Keys) == 0 {
			return fmt.Errorf("%w: Input.Keys", ErrMissingField)
		}
	case KindNewGarbage:
		if m.NewGarbage == nil {
			return fmt.Errorf("%w: NewGarbage", ErrMissingField)
		}
	case KindUpdateGarbage:
		if m.UpdateGarbage == nil {
			return fmt.Errorf("%w: UpdateGarbage", ErrMissingField)
		}
	case KindGarbageState:
		if m.GarbageState == nil {
			return fmt.Errorf("%w: GarbageState", ErrMissingField)
		}
	case KindPlayerRank:
		if m.PlayerRank == nil {
			return fmt.Errorf("%w: PlayerRank", ErrMissingField)
		}
	case KindChat:
		if m.Chat == nil {
			return fmt.Errorf("%w: Chat", ErrMissingField)
		}
	case KindNotification:
		if m.Notification == nil {
			return fmt.Errorf("%w: Notification", ErrMissingField)
		}
	default:
		return fmt.Errorf("%w: unknown Kind %d", ErrMissingField, m.Kind)
	}
	return nil
}

