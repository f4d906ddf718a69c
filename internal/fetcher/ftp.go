package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadgrid/prospect-cli/internal/model"
)

const ftpTimeout = 30 * time.Second

// parseFTPURL extracts host (with port), remote path and credentials
// from an ftp:// URL. Anonymous login when the URL carries no userinfo.
func parseFTPURL(rawURL string) (host, path, user, pass string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return "", "", "", "", eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" {
		return "", "", "", "", eris.New("ftp: empty path in url")
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	user, pass = "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}

	return host, u.Path, user, pass, nil
}

// loadFTP retrieves the remote file and parses it by extension. XLSX
// files are spooled to disk first since the parser needs random access.
func loadFTP(ctx context.Context, ftpURL string) ([]model.JobItem, error) {
	host, remote, user, pass, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", remote))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(ftpTimeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp: dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(user, pass); err != nil {
		return nil, eris.Wrap(err, "ftp: login")
	}

	resp, err := conn.Retr(remote)
	if err != nil {
		return nil, eris.Wrap(err, "ftp: retrieve")
	}
	defer resp.Close() //nolint:errcheck

	if strings.EqualFold(filepath.Ext(remote), ".xlsx") {
		local, err := spool(resp)
		if err != nil {
			return nil, err
		}
		defer os.Remove(local) //nolint:errcheck
		return ReadXLSX(local)
	}

	return ReadCSV(ctx, resp)
}

// spool copies a remote stream to a temporary file and returns its path.
func spool(r io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "prospect-import-*.xlsx")
	if err != nil {
		return "", eris.Wrap(err, "ftp: create temp file")
	}
	defer tmp.Close() //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", eris.Wrap(err, "ftp: spool remote file")
	}
	return tmp.Name(), nil
}
