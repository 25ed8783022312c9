// Package student scrapes student records from the MSI administrative
// portal with a session that is already logged in.
package student

import (
	"strings"

	"github.com/jmcleod/mjuauth/htmlscan"
)

// Address is a postal code and a one-line address.
type Address struct {
	PostalCode string `json:"postal_code"`
	Address    string `json:"address"`
}

type Profile struct {
	StudentID                   string `json:"student_id"`
	NameKorean                  string `json:"name_korean"`
	Grade                       string `json:"grade"`
	EnrollmentStatus            string `json:"enrollment_status"`
	CollegeDepartment           string `json:"college_department"`
	AcademicAdvisor             string `json:"academic_advisor"`
	StudentDesignedMajorAdvisor string `json:"student_designed_major_advisor"`
	PhotoBase64                 string `json:"photo_base64"`
}

type Contact struct {
	EnglishSurname              string  `json:"english_surname"`
	EnglishGivenName            string  `json:"english_givenname"`
	PhoneNumber                 string  `json:"phone_number"`
	MobileNumber                string  `json:"mobile_number"`
	Email                       string  `json:"email"`
	CurrentResidenceAddress     Address `json:"current_residence_address"`
	ResidentRegistrationAddress Address `json:"resident_registration_address"`
}

// Card is the student card page.
type Card struct {
	Profile         Profile           `json:"student_profile"`
	Contact         Contact           `json:"personal_contact"`
	FocusNewsletter bool              `json:"-"`
	Raw             map[string]string `json:"-"`
}

// ChangeLog is the enrollment status summary page.
type ChangeLog struct {
	StudentID          string `json:"student_id"`
	Name               string `json:"name"`
	Status             string `json:"status"`
	Grade              string `json:"grade"`
	CompletedSemesters string `json:"completed_semesters"`
	Department         string `json:"department"`
}

// BasicInfo is the summary card on the portal's main page.
type BasicInfo struct {
	Department     string `json:"department"`
	Category       string `json:"category"`
	Grade          string `json:"grade"`
	LastAccessTime string `json:"last_access_time"`
	LastAccessIP   string `json:"last_access_ip"`
}

// Main page summary titles.
const (
	cellDepartment = "소 속"
	cellCategory   = "구 분"
	cellGrade      = "학 년"
	cellLastTime   = "최근접속시간"
	cellLastIP     = "최근접속IP"
)

func basicInfoFromCells(cells map[string]string) *BasicInfo {
	return &BasicInfo{
		Department:     cells[cellDepartment],
		Category:       cells[cellCategory],
		Grade:          cells[cellGrade],
		LastAccessTime: cells[cellLastTime],
		LastAccessIP:   cells[cellLastIP],
	}
}

// Page titles used by the portal.
const (
	titleStudentID       = "학번"
	titleNameKorean      = "한글성명"
	titleName            = "성명"
	titleSurname         = "영문성명(성)"
	titleGivenName       = "영문성명(이름)"
	titleGrade           = "학년"
	titleStatus          = "학적상태"
	titleDepartment      = "학부(과)"
	titleAdvisor         = "상담교수"
	titleDesignAdvisor   = "학생설계전공지도교수"
	titleCompleted       = "이수학기"
	titlePhone           = "전화번호"
	titleMobile          = "휴대폰"
	titleEmail           = "E-Mail"
	titleCurrentAddr     = "현거주지"
	titleRegisteredAddr  = "주민등록"
	titleFocusNewsletter = "명지포커스"
)

func inputValue(it htmlscan.TableItem, name string) string {
	in, _ := it.Input(name)
	return in.Value
}

func joinAddress(a, b string) string {
	return strings.TrimSpace(strings.TrimSpace(a) + " " + strings.TrimSpace(b))
}

func joinZip(a, b string) string {
	if a == "" && b == "" {
		return ""
	}
	return a + "-" + b
}

// cardFromItems maps the flex-table of the student card page onto a Card.
func cardFromItems(items []htmlscan.TableItem, photo string) *Card {
	c := &Card{Raw: make(map[string]string, len(items))}
	c.Profile.PhotoBase64 = photo

	for _, it := range items {
		c.Raw[it.Title] = it.Value()

		switch {
		case it.Title == titleStudentID:
			c.Profile.StudentID = it.Value()
		case it.Title == titleNameKorean:
			c.Profile.NameKorean = it.Value()
		case it.Title == titleSurname:
			c.Contact.EnglishSurname = it.Value()
		case it.Title == titleGivenName:
			c.Contact.EnglishGivenName = it.Value()
		case it.Title == titleGrade:
			c.Profile.Grade = it.Value()
		case it.Title == titleStatus:
			c.Profile.EnrollmentStatus = it.Value()
		case it.Title == titleDepartment:
			c.Profile.CollegeDepartment = it.Value()
		case it.Title == titleAdvisor:
			c.Profile.AcademicAdvisor = it.Value()
		case it.Title == titleDesignAdvisor:
			c.Profile.StudentDesignedMajorAdvisor = it.Value()
		case it.Title == titlePhone:
			c.Contact.PhoneNumber = inputValue(it, "std_tel")
		case it.Title == titleMobile:
			c.Contact.MobileNumber = inputValue(it, "htel")
		case it.Title == titleEmail:
			c.Contact.Email = inputValue(it, "email")
		case strings.Contains(it.Title, titleCurrentAddr):
			c.Contact.CurrentResidenceAddress = Address{
				PostalCode: joinZip(inputValue(it, "zip1"), inputValue(it, "zip2")),
				Address:    joinAddress(inputValue(it, "addr1"), inputValue(it, "addr2")),
			}
		case strings.Contains(it.Title, titleRegisteredAddr):
			c.Contact.ResidentRegistrationAddress = Address{
				PostalCode: joinZip(inputValue(it, "zip1_2"), inputValue(it, "zip2_2")),
				Address:    joinAddress(inputValue(it, "addr1_2"), inputValue(it, "addr2_2")),
			}
		case strings.Contains(it.Title, titleFocusNewsletter):
			in, ok := it.Input("focus_yn")
			c.FocusNewsletter = ok && in.Checked
		}
	}
	return c
}

func changeLogFromFields(fields map[string]string) *ChangeLog {
	return &ChangeLog{
		StudentID:          fields[titleStudentID],
		Name:               fields[titleName],
		Status:             fields[titleStatus],
		Grade:              fields[titleGrade],
		CompletedSemesters: fields[titleCompleted],
		Department:         fields[titleDepartment],
	}
}
