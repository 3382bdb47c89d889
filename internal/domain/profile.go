/**
 * @description
 * Student and class-rep identity models. The org directory
 * (university -> faculty -> department -> class) is an external collaborator;
 * the service only carries the resolved coordinates it needs to address
 * ledger rows.
 */
package domain

import "time"

// ClassScope addresses one class inside the org hierarchy.
type ClassScope struct {
	UniversityID string `json:"universityId"`
	FacultyID    string `json:"facultyId"`
	DepartmentID string `json:"departmentId"`
	ClassID      string `json:"classId"`
}

// ClassDetails is a ClassScope enriched with display names.
type ClassDetails struct {
	ClassScope
	ClassName      string `json:"className,omitempty"`
	FacultyName    string `json:"facultyName,omitempty"`
	DepartmentName string `json:"departmentName,omitempty"`
	UniversityName string `json:"universityName,omitempty"`
}

// StudentProfile is a student's directory entry within a university.
type StudentProfile struct {
	Regno           string     `json:"regno"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	Class           ClassScope `json:"class"`
	DepartmentName  string     `json:"departmentName"`
	ProfileVerified bool       `json:"profileVerified"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// RepProfile is a class representative's directory entry, keyed by the
// stable uid the auth collaborator returns for a bearer credential.
type RepProfile struct {
	UID             string       `json:"uid"`
	Regno           string       `json:"regno"`
	Class           ClassDetails `json:"class"`
	ProfileVerified bool         `json:"profileVerified"`
}

// InitiatorKind discriminates who is creating a student profile.
type InitiatorKind int

const (
	// SelfService means the student is registering themselves.
	SelfService InitiatorKind = iota
	// AdminInitiated means a class rep is registering the student.
	AdminInitiated
)

// Initiator is resolved once at the API boundary and carried through profile
// creation instead of re-checking a role string ad hoc.
type Initiator struct {
	Kind InitiatorKind
	// UID of the acting rep; set only when Kind is AdminInitiated.
	UID string
}
