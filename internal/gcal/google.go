package gcal

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleClient implements FreeBusyClient and EventClient against the
// Google Calendar API using a service account. Internal calendars require
// domain-wide delegation: queries for them go through a second service
// built with the impersonation subject, since free/busy for in-domain
// calendars is only visible to an in-domain principal.
type GoogleClient struct {
	service             *calendar.Service
	impersonatedService *calendar.Service
}

// GoogleClientConfig carries the service account credentials and the
// in-domain user to impersonate for internal calendar queries.
type GoogleClientConfig struct {
	CredentialsJSON      []byte
	ImpersonationSubject string
}

// NewGoogleClient builds calendar services from service account
// credentials. When an impersonation subject is configured a second
// service is created with that subject for internal calendar access.
func NewGoogleClient(ctx context.Context, cfg GoogleClientConfig) (*GoogleClient, error) {
	if len(cfg.CredentialsJSON) == 0 {
		return nil, fmt.Errorf("gcal: credentials JSON is required")
	}

	jwtCfg, err := google.JWTConfigFromJSON(cfg.CredentialsJSON, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("gcal: parsing service account credentials: %w", err)
	}
	service, err := calendar.NewService(ctx, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("gcal: creating calendar service: %w", err)
	}

	client := &GoogleClient{service: service}

	if cfg.ImpersonationSubject != "" {
		impCfg, err := google.JWTConfigFromJSON(cfg.CredentialsJSON, calendar.CalendarScope)
		if err != nil {
			return nil, fmt.Errorf("gcal: parsing service account credentials: %w", err)
		}
		impCfg.Subject = cfg.ImpersonationSubject
		impService, err := calendar.NewService(ctx, option.WithTokenSource(impCfg.TokenSource(ctx)))
		if err != nil {
			return nil, fmt.Errorf("gcal: creating impersonated calendar service: %w", err)
		}
		client.impersonatedService = impService
	}

	return client, nil
}

// Query issues a free/busy request for up to BatchMaxCalendars calendars
// and returns busy blocks keyed by calendar ID. Calendars the API reports
// errors for are returned with no blocks rather than failing the batch.
func (c *GoogleClient) Query(ctx context.Context, calendarIDs []string, timeMin, timeMax string, impersonate bool) (map[string][]BusyBlock, error) {
	service := c.service
	if impersonate {
		if c.impersonatedService == nil {
			return nil, fmt.Errorf("gcal: impersonation requested but no subject configured")
		}
		service = c.impersonatedService
	}

	items := make([]*calendar.FreeBusyRequestItem, 0, len(calendarIDs))
	for _, id := range calendarIDs {
		items = append(items, &calendar.FreeBusyRequestItem{Id: id})
	}
	req := &calendar.FreeBusyRequest{
		TimeMin: timeMin,
		TimeMax: timeMax,
		Items:   items,
	}

	resp, err := service.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, classifyError(err)
	}

	busy := make(map[string][]BusyBlock, len(calendarIDs))
	for _, id := range calendarIDs {
		cal, ok := resp.Calendars[id]
		if !ok {
			busy[id] = nil
			continue
		}
		blocks := make([]BusyBlock, 0, len(cal.Busy))
		for _, period := range cal.Busy {
			start, err := time.Parse(time.RFC3339, period.Start)
			if err != nil {
				return nil, fmt.Errorf("gcal: parsing busy period start %q: %w", period.Start, err)
			}
			end, err := time.Parse(time.RFC3339, period.End)
			if err != nil {
				return nil, fmt.Errorf("gcal: parsing busy period end %q: %w", period.End, err)
			}
			blocks = append(blocks, BusyBlock{Start: start, End: end})
		}
		busy[id] = blocks
	}
	return busy, nil
}

// InsertEvent creates a calendar event, optionally with a Meet link.
func (c *GoogleClient) InsertEvent(ctx context.Context, req EventRequest) (*EventResult, error) {
	service := c.service
	if c.impersonatedService != nil {
		service = c.impersonatedService
	}

	end := req.Start.Add(time.Duration(req.DurationMinutes) * time.Minute)
	event := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start: &calendar.EventDateTime{
			DateTime: req.Start.Format(time.RFC3339),
			TimeZone: req.TimezoneName,
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: req.TimezoneName,
		},
	}
	for _, att := range req.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{
			Email:       att.Email,
			DisplayName: att.Name,
		})
	}
	if req.JoinURL != "" {
		event.Location = req.JoinURL
	}
	if req.CreateMeetLink {
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: req.ConferenceRequestID,
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		}
	}

	call := service.Events.Insert(req.CalendarID, event).Context(ctx)
	if req.CreateMeetLink {
		call = call.ConferenceDataVersion(1)
	}
	if req.SendUpdates != "" {
		call = call.SendUpdates(req.SendUpdates)
	}

	created, err := call.Do()
	if err != nil {
		return nil, classifyError(err)
	}

	result := &EventResult{
		EventID:  created.Id,
		HTMLLink: created.HtmlLink,
		Created:  true,
	}
	if created.ConferenceData != nil {
		for _, entry := range created.ConferenceData.EntryPoints {
			if entry.EntryPointType == "video" {
				result.MeetLink = entry.Uri
				break
			}
		}
	}
	return result, nil
}
