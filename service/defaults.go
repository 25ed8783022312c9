package service

const (
	Main    = "main"
	MSI     = "msi"
	LMS     = "lms"
	MyICAP  = "myicap"
	Intern  = "intern"
	IPP     = "ipp"
	UCheck  = "ucheck"
	Portal  = "portal"
	Library = "library"
)

// SSOHost is the gateway host; being bounced back to it means the portal
// session is gone.
const SSOHost = "sso.mju.ac.kr"

var defaults = []Descriptor{
	{
		Key:        Main,
		Name:       "명지대 통합 포털",
		LoginURL:   "https://sso.mju.ac.kr/sso/auth?client_id=www&response_type=code&state=1764563970576&rd_c_p=siteId%40%40mjukr%2Credirect_uri%40%40https%253A%252F%252Fwww.mju.ac.kr%252Fmjukr%252Findex.do&redirect_uri=https%3A%2F%2Fwww.mju.ac.kr%2Fsso%2Fauth%2Fresult.do",
		SuccessURL: "https://www.mju.ac.kr/mjukr/index.do",
	},
	{
		Key:        MSI,
		Name:       "MSI (학사행정시스템)",
		LoginURL:   "https://sso.mju.ac.kr/sso/auth?client_id=msi&response_type=code&state=1764563066913&tkn_type=normal&redirect_uri=https%3A%2F%2Fmsi.mju.ac.kr%2Findex_Myiweb.jsp",
		SuccessURL: "https://msi.mju.ac.kr/servlet/security/MySecurityStart",
	},
	{
		Key:        LMS,
		Name:       "LMS (LearnUs)",
		LoginURL:   "https://sso.mju.ac.kr/sso/auth?response_type=code&client_id=lms&state=Random%20String&redirect_uri=https://lms.mju.ac.kr/ilos/sso/sso_response.jsp",
		SuccessURL: "https://lms.mju.ac.kr/ilos/main/main_form.acl",
	},
	{
		Key:        MyICAP,
		Name:       "MyiCAP (캡스톤/현장실습)",
		LoginURL:   "https://sso.mju.ac.kr/sso/auth?client_id=myicap&response_type=code&state=1764563719271&rd_c_p=loginparam&tkn_type=normal&redirect_uri=https%3A%2F%2Fmyicap.mju.ac.kr%2Findex.jsp",
		SuccessURL: "https://myicap.mju.ac.kr/site/main/index001?prevurl=https%3A%2F%2Fsso.mju.ac.kr%2F",
	},
	{
		Key:        Intern,
		Name:       "인턴십 시스템",
		LoginURL:   "https://sso.mju.ac.kr/sso/auth?client_id=intern&response_type=code&state=1764563776458&rd_c_p=loginparam&tkn_type=normal&redirect_uri=https%3A%2F%2Fintern.mju.ac.kr%2Fsso.do",
		SuccessURL: "https://intern.mju.ac.kr/main.do",
	},
	{
		Key:        IPP,
		Name:       "IPP (산업연계)",
		LoginURL:   "https://sso.mju.ac.kr/sso/auth?client_id=ipp&response_type=code&state=1764563932107&rd_c_p=loginparam&tkn_type=normal&redirect_uri=https%3A%2F%2Fipp.mju.ac.kr%2Findex.do",
		SuccessURL: "https://ipp.mju.ac.kr/common/common.do?jsp_path=index",
	},
	{
		Key:        UCheck,
		Name:       "U-CHECK (출석확인)",
		LoginURL:   "https://sso.mju.ac.kr/sso/auth?response_type=code&client_id=ucheck&state=sso-1764564022377&redirect_uri=https%3A%2F%2Fucheck.mju.ac.kr",
		SuccessURL: "https://ucheck.mju.ac.kr/",
	},
	{
		Key:           Portal,
		Name:          "Portal (통합정보시스템)",
		LoginURL:      "https://sso.mju.ac.kr/sso/auth?client_id=portal&response_type=code&state=1764321341781&rd_c_p=loginparam&tkn_type=normal&redirect_uri=https%3A%2F%2Fportal.mju.ac.kr%2Fsso%2Fresponse.jsp",
		SuccessDomain: "portal.mju.ac.kr",
	},
	{
		Key:           Library,
		Name:          "Library (도서관)",
		LoginURL:      "https://sso.mju.ac.kr/sso/auth?response_type=code&client_id=library&state=state&redirect_uri=https://lib.mju.ac.kr/sso/login",
		SuccessDomain: "lib.mju.ac.kr",
	},
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := NewRegistry(defaults...)
	if err != nil {
		panic("service: invalid built-in table: " + err.Error())
	}
	return r
}

// MSIEndpoints are the administrative portal pages the record fetchers use.
type MSIEndpoints struct {
	Home           string `yaml:"home" toml:"home"`
	StudentCard    string `yaml:"student_card" toml:"student_card"`
	PasswordVerify string `yaml:"password_verify" toml:"password_verify"`
	ChangeLog      string `yaml:"change_log" toml:"change_log"`
}

func DefaultMSIEndpoints() MSIEndpoints {
	return MSIEndpoints{
		Home:           "https://msi.mju.ac.kr/servlet/security/MySecurityStart",
		StudentCard:    "https://msi.mju.ac.kr/servlet/su/sum/Sum00Svl01getStdCard",
		PasswordVerify: "https://msi.mju.ac.kr/servlet/sys/sys15/Sys15Svl01verifyPW",
		ChangeLog:      "https://msi.mju.ac.kr/servlet/su/sud/Sud00Svl03viewChangeLog",
	}
}
