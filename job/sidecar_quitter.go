package job

import (
	"io"
	"net/http"
	"strings"

	"inviqa/request-basket/log"

	"github.com/pkg/errors"
)

type httpPoster interface {
	Post(url, contentType string, body io.Reader) (resp *http.Response, err error)
}

// SidecarQuitter tells a service mesh proxy running next to a one-shot job
// that the job is finished, so the pod can complete.
type SidecarQuitter struct {
	QuitSidecar     bool
	Client          httpPoster
	sidecarProxyUrl string
}

func (s *SidecarQuitter) EnableSideCarProxyQuit(proxyUrl string) {
	s.QuitSidecar = true
	s.sidecarProxyUrl = strings.TrimSuffix(proxyUrl, "/")
}

func (s *SidecarQuitter) Quit() error {
	resp, err := s.Client.Post(s.sidecarProxyUrl+"/quitquitquit", "text/plain", nil)
	if err != nil {
		log.Logger.WithError(err).Error("unexpected error received from sidecar proxy /quitquitquit")
		return errors.Wrap(err, "unable to quit sidecar proxy")
	}
	if resp == nil {
		return nil
	}
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("sidecar proxy refused to quit with status %d", resp.StatusCode)
	}

	return nil
}
