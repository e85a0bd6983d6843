package releases

// Partition keys
func SitePK(site string) string { return "SITE#" + site }

// Sort keys
const ReleasePrefix = "RELEASE#"

// ReleaseSK orders releases by creation time; the id breaks ties.
func ReleaseSK(createdAt, id string) string { return ReleasePrefix + createdAt + "#" + id }
