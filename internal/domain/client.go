package domain

type Client struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	GroupID      string `json:"group_id,omitempty"`
	CompanyName  string `json:"company_name"`
	ContactEmail string `json:"contact_email,omitempty"`
}
