package api

const (
	ApiVersion_1_0 = "v1alpha1"
	ServerVersion  = "Tenancy Server: 0.1.0"
)

type GetVersionReq struct {
	ApiVersion string `json:"api_version,omitempty"`
}

func (r GetVersionReq) RequestMethod() (string, string) {
	return "GET", "/version"
}

type GetVersionRsp struct {
	ServerVersion string `json:"server_version"`
	ApiVersion    string `json:"api_version"`
}

// CurrentVersion is the version reported by this build.
func CurrentVersion() GetVersionRsp {
	return GetVersionRsp{
		ServerVersion: ServerVersion,
		ApiVersion:    ApiVersion_1_0,
	}
}
