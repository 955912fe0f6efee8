// Package service maps well-known TCP ports to service labels.
package service

// Unknown is the label for ports missing from the table
const Unknown = "Unknown"

var labels = map[int]string{
	21:    "FTP",
	22:    "SSH",
	23:    "Telnet",
	25:    "SMTP",
	53:    "DNS",
	80:    "HTTP",
	443:   "HTTPS",
	3306:  "MySQL",
	3389:  "RDP",
	5432:  "PostgreSQL",
	5601:  "Kibana",
	5900:  "VNC",
	6379:  "Redis",
	8080:  "HTTP-Proxy",
	8443:  "HTTPS-Alt",
	8888:  "Sun/JDBC",
	9000:  "PHP-FPM",
	9200:  "Elasticsearch",
	11211: "Memcached",
	27017: "MongoDB",
}

// Classify returns the service label for port, or Unknown
func Classify(port int) string {
	if label, ok := labels[port]; ok {
		return label
	}
	return Unknown
}
