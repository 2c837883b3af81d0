package model

// Patient is the simplified registration created at the reception desk.
type Patient struct {
	Base
	LastName   string `db:"last_name" json:"last_name"`
	FirstName  string `db:"first_name" json:"first_name"`
	MiddleName string `db:"middle_name" json:"middle_name"`
	Mobile     string `db:"mobile" json:"mobile"`
}

func (p *Patient) FullName() string {
	return fullName(p.LastName, p.FirstName, p.MiddleName)
}

func (p *Patient) ShortName() string {
	return shortName(p.LastName, p.FirstName, p.MiddleName)
}

// PatientInfo carries the fields needed to register a patient inline.
type PatientInfo struct {
	LastName   string `json:"last_name"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	Mobile     string `json:"mobile"`
}
