// Package configdb resolves application settings, typically database
// credentials, from a YAML or JSON file holding several named profiles.
//
// A config file looks like:
//
//	default:
//	  dbname: prod
//	  user: app
//	  pwd: secret
//	alternative:
//	  dbname: staging
//	  user: app
//	  pwd: other
//
// Resolution:
//  1. The file is Request.ConfigFile, else $CONFIGDB_CONFIG_PATH, else
//     $HOME/.config/configdb/1.0/configdb.yaml.
//  2. The profile is Request.Profile, else $CONFIGDB_PROFILE, else "default".
//  3. A missing file is replaced by a template whose "default" profile lists
//     every required key as null, and a *MissingValueError is returned so the
//     operator knows what to fill in.
//  4. An unknown profile yields a *BadProfileError naming the alternatives.
//  5. Required keys that are absent or null yield a *MissingValueError
//     listing all of them.
//
// Typical usage:
//
//	r := configdb.New(configdb.WithStreams(streams.Std()))
//	db, err := r.Resolve(configdb.Request{Required: []string{"dbname", "user", "pwd"}})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dsn := fmt.Sprintf("dbname=%s user=%s password=%s", db.String("dbname"), db.String("user"), db.String("pwd"))
//
// Bind decodes a profile into a struct instead, with optional environment
// overrides and github.com/ygrebnov/model defaults and validation.
package configdb
