package browser

import (
	"context"
	"fmt"

	"github.com/dlclark/regexp2"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ondemand-tools/ondemand-dl/internal/config"
	"github.com/ondemand-tools/ondemand-dl/internal/models"
)

// dashboardScript reports whether the page settled on the platform host.
const dashboardScript = `(host) => location.href.replace(/\/$/, "") === host.replace(/\/$/, "")`

// OpenCourse logs in when the platform asks for it, opens the course and reads its tree
// from the patched bundle. Traffic generated along the way feeds the harvester.
func (s *Session) OpenCourse(ctx context.Context, cfg *config.Config) (*models.CourseTree, error) {
	logger := config.GetLogger()
	host := cfg.OnDemand.Host

	err := s.step(ctx, "Going to "+host, func(p *rod.Page) error {
		wait := p.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
		if err := p.Navigate(host); err != nil {
			return err
		}
		wait()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.loginIfNeeded(ctx, cfg); err != nil {
		return nil, err
	}

	err = s.step(ctx, "Arriving at dashboard", func(p *rod.Page) error {
		return p.Wait(rod.Eval(dashboardScript, host))
	})
	if err != nil {
		return nil, err
	}

	var name string
	err = s.step(ctx, "Navigating to course", func(p *rod.Page) error {
		link, err := p.ElementR("a", regexp2.Escape(cfg.Course))
		if err != nil {
			return err
		}
		if err := link.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		if _, err := p.Element(courseOutlineID); err != nil {
			return err
		}
		if _, err := p.Element(courseTitleSelector); err != nil {
			return err
		}
		html, err := p.HTML()
		if err != nil {
			return err
		}
		name, err = courseNameFromHTML(html)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("course", name).Msg("Getting course name")

	patchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	bundle, err := s.harvester.BundlePatched(patchCtx)
	if err != nil {
		return nil, fmt.Errorf("waiting for patched client bundle: %w", err)
	}
	logger.Debug().Str("bundle", bundle).Msg("Client bundle patched")

	var raw []models.RawSection
	err = s.step(ctx, "Collecting sections and modules", func(p *rod.Page) error {
		res, err := p.Eval(sectionsScript)
		if err != nil {
			return err
		}
		raw, err = parseSections(res.Value.Str())
		return err
	})
	if err != nil {
		return nil, err
	}

	tree := models.NewCourseTree(name, raw)
	logger.Info().
		Int("sections", len(tree.Sections)).
		Int("modules", tree.ModuleCount()).
		Msg("Course tree collected")
	return tree, nil
}

func (s *Session) loginIfNeeded(ctx context.Context, cfg *config.Config) error {
	logger := config.GetLogger()

	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return fmt.Errorf("read landing page: %w", err)
	}
	needed, err := hasLoginForm(html)
	if err != nil || !needed {
		return err
	}
	logger.Info().Msg("Detected login page")

	username, password, err := promptCredentials(cfg.Credentials())
	if err != nil {
		return err
	}

	return s.step(ctx, "Submitting", func(p *rod.Page) error {
		user, err := p.Element(usernameSelector)
		if err != nil {
			return err
		}
		if err := user.Input(username); err != nil {
			return err
		}
		pass, err := p.Element(passwordSelector)
		if err != nil {
			return err
		}
		if err := pass.Input(password); err != nil {
			return err
		}
		submit, err := p.Element(submitSelector)
		if err != nil {
			return err
		}
		wait := p.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
		if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return err
		}
		wait()
		return nil
	})
}
