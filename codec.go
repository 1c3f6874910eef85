package userstore

// encodeUserFields renders the non-credential fields of a put request as a
// stored field map. The write paths add the password field themselves when
// the operation carries one.
func encodeUserFields(req PutUserRequest) map[string]any {
	roles := req.Roles
	if roles == nil {
		roles = []string{}
	}
	return map[string]any{
		fieldUsername: req.Username,
		fieldRoles:    roles,
		fieldFullName: req.FullName,
		fieldEmail:    req.Email,
		fieldMetadata: req.Metadata,
		fieldEnabled:  req.Enabled,
	}
}

// decodeUser converts a raw stored document into a typed record. A missing
// enabled field is legacy data and defaults to true. Records missing the
// required password or roles fields are unusable: they are logged and
// dropped (nil), never returned partially populated.
func decodeUser(logger Logger, username string, source map[string]any) *userAndHash {
	if source == nil {
		return nil
	}

	password, ok := source[fieldPassword].(string)
	if !ok {
		logger.Error("error in the format of data for user [%s]: missing password field", username)
		return nil
	}

	roles, ok := decodeRoles(source[fieldRoles])
	if !ok {
		logger.Error("error in the format of data for user [%s]: missing or malformed roles", username)
		return nil
	}

	enabled := true
	if raw, present := source[fieldEnabled]; present {
		enabled, ok = raw.(bool)
		if !ok {
			logger.Error("error in the format of data for user [%s]: malformed enabled flag", username)
			return nil
		}
	}

	fullName, _ := source[fieldFullName].(string)
	email, _ := source[fieldEmail].(string)
	metadata, _ := source[fieldMetadata].(map[string]any)

	return &userAndHash{
		user: &User{
			Username: username,
			Roles:    roles,
			FullName: fullName,
			Email:    email,
			Metadata: metadata,
			Enabled:  enabled,
		},
		passwordHash: password,
	}
}

// decodeRoles accepts both the typed and the generic slice shape a JSON
// round trip produces.
func decodeRoles(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			role, ok := item.(string)
			if !ok {
				return nil, false
			}
			roles = append(roles, role)
		}
		return roles, true
	default:
		return nil, false
	}
}

// decodeReservedUserInfo converts a stored reserved-user override. Unlike
// decodeUser, corruption here is a hard failure: callers fall back to
// compiled-in defaults only when no document exists at all, never on a
// read that returned bad data.
func decodeReservedUserInfo(username string, source map[string]any) (*ReservedUserInfo, error) {
	hash, _ := source[fieldPassword].(string)
	if hash == "" {
		return nil, newMalformedReservedError(username, "password hash must not be empty")
	}

	enabled, ok := source[fieldEnabled].(bool)
	if !ok {
		return nil, newMalformedReservedError(username, "enabled must not be null")
	}

	return &ReservedUserInfo{PasswordHash: hash, Enabled: enabled}, nil
}
