package ciq

import "github.com/google/uuid"

// DeviceType describes one wearable model known to the Connect IQ store.
type DeviceType struct {
	Name            string   `json:"name"`
	PartNumber      string   `json:"partNumber"`
	URLName         string   `json:"urlName"`
	AdditionalNames []string `json:"additionalNames"`
	ImageURL        string   `json:"imageUrl"`
}

// AppInfo is the store's public metadata for one application.
type AppInfo struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	DeveloperName string    `json:"developerName"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
}

// InstalledApp identifies one installed application when asking the store
// for updates.
type InstalledApp struct {
	AppID                 uuid.UUID `json:"appId"`
	InternalVersionNumber uint32    `json:"internalVersionNumber"`
}

// AppUpdate is one entry of the store's update feed for a device.
type AppUpdate struct {
	AppID                       uuid.UUID `json:"appId"`
	Name                        string    `json:"name"`
	DeveloperName               string    `json:"developerName"`
	Type                        string    `json:"type"`
	Size                        int       `json:"size"`
	LatestInternalVersionNumber uint32    `json:"latestInternalVersionNumber"`
	LatestVersionName           string    `json:"latestVersionName"`
	PermissionsChanged          bool      `json:"permissionsChanged"`
	Permissions                 []string  `json:"permissions"`
	HasSettings                 bool      `json:"hasSettings"`
	MinFirmwareVersion          string    `json:"minFirmwareVersion"`
	MaxFirmwareVersion          string    `json:"maxFirmwareVersion"`
}

// FirmwareLocation is the download pointer inside a firmware update entry.
// MD5 and Size guard the downloaded bytes.
type FirmwareLocation struct {
	URL        string `json:"Url"`
	IsRelative bool   `json:"IsRelative"`
	MD5        string `json:"Md5"`
	Size       int    `json:"Size"`
}

// FirmwareUpdate is one entry of the unit software update feed.
type FirmwareUpdate struct {
	DisplayName       string           `json:"DisplayName"`
	PartNumber        string           `json:"PartNumber"`
	SoftwareVersion   float64          `json:"SoftwareVersion"`
	Location          FirmwareLocation `json:"Url"`
	FilePathOnUnit    string           `json:"FilePathOnUnit"`
	EulaURL           string           `json:"EulaUrl"`
	Changes           []string         `json:"Changes"`
	IsRecommended     bool             `json:"IsRecommended"`
	IsRestartRequired bool             `json:"IsRestartRequired"`
	IsPrimaryFirmware bool             `json:"IsPrimaryFirmware"`
	IsReinstall       bool             `json:"IsReinstall"`
	Locale            string           `json:"Locale"`
	ChangeSeverity    int              `json:"ChangeSeverity"`
	DataType          string           `json:"DataType"`
	InstallationOrder int              `json:"InstallationOrder"`
}

// Version splits the feed's decimal software version into the device's
// major.minor scheme, e.g. 12.20 into (12, 20).
func (f *FirmwareUpdate) Version() (major, minor int) {
	major = int(f.SoftwareVersion)
	minor = int(f.SoftwareVersion*100+0.5) % 100
	return major, minor
}
