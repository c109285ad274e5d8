package domain

// InviteCode is a single-use code that gates signup.
// Codes are seeded out-of-band; the client only reads them and flips Used once.
type InviteCode struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
	Used        bool   `json:"used"`
}

// Usable reports whether the code can still gate a registration.
func (i *InviteCode) Usable() bool {
	return i != nil && !i.Used
}
